package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"nftify-back-onchain/chain"
	"nftify-back-onchain/config"
	contractGateway "nftify-back-onchain/gateway/contract"
	paymentGateway "nftify-back-onchain/gateway/payment"
	contractHandler "nftify-back-onchain/handler/contract"
	marketHandler "nftify-back-onchain/handler/market"
	"nftify-back-onchain/handler/middleware"
	paymentHandler "nftify-back-onchain/handler/payment"
	contractUsecase "nftify-back-onchain/usecase/contract"
	marketUsecase "nftify-back-onchain/usecase/market"
	paymentUsecase "nftify-back-onchain/usecase/payment"
)

func main() {
	// --- 1. Configuration and logging ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- 2. Chain backend ---
	var (
		backend         contractGateway.Backend
		marketUC        marketUsecase.MarketUsecase
		marketplaceAddr = cfg.MarketplaceAddr
	)
	if cfg.Remote() {
		client, err := ethclient.Dial(cfg.NodeURL)
		if err != nil {
			log.Crit("Failed to connect to node", "url", cfg.NodeURL, "err", err)
		}
		log.Info("Connected to node", "url", cfg.NodeURL)

		// Log subscriptions need a streaming transport.
		backend = client
		if cfg.WSURL() != cfg.NodeURL {
			wsClient, err := ethclient.Dial(cfg.WSURL())
			if err != nil {
				log.Warn("Failed to connect WebSocket for events", "url", cfg.WSURL(), "err", err)
			} else {
				log.Info("Connected to node for events", "url", cfg.WSURL())
				backend = wsClient
			}
		}
		log.Warn("Remote mode is read-only, market write routes are disabled")
	} else {
		balance, _ := cfg.DevBalance()
		c := chain.New()
		dep, err := marketUsecase.Deploy(c, common.HexToAddress(cfg.DeployerAddr), cfg.DevTokenURI, cfg.Accounts(), balance)
		if err != nil {
			log.Crit("Failed to deploy contracts", "err", err)
		}
		marketplaceAddr = dep.Marketplace.Address().Hex()
		for _, col := range dep.Collections {
			log.Info("Collection deployed", "name", col.Name(), "address", col.Address())
		}
		log.Info("Local chain ready", "marketplace", marketplaceAddr, "accounts", len(cfg.Accounts()))

		backend = c
		marketUC = marketUsecase.NewMarketUsecase(c, dep.Marketplace, dep.Addresses()...)
	}

	// --- 3. Contract wiring ---
	ctGateway, err := contractGateway.NewNFTifyContractGateway(ctx, backend, marketplaceAddr)
	if err != nil {
		log.Crit("Failed to initialize contract gateway", "err", err)
	}
	contractUC := contractUsecase.NewContractUsecase(ctGateway, cfg.BackendBaseURL)
	if err := contractUC.StartEventListener(ctx); err != nil {
		log.Warn("Failed to start event listener", "err", err)
	}
	if cfg.BackendBaseURL == "" {
		log.Info("BACKEND_BASE_URL not set, events are not relayed")
	}

	// --- 4. Payment wiring ---
	paymentUC := paymentUsecase.NewPaymentUsecase(paymentGateway.NewEthGateway(backend, marketplaceAddr))

	// --- 5. Routes ---
	router := mux.NewRouter()
	router.Use(middleware.RequestID)

	health := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
	router.HandleFunc("/", health).Methods("GET")
	router.HandleFunc("/health", health).Methods("GET")

	marketHandler.NewMarketHandler(marketUC, contractUC).Routes(router.PathPrefix("/api/v1/market").Subrouter())

	contractHdlr := contractHandler.NewContractHandler(contractUC)
	router.HandleFunc("/api/v1/contract/info", contractHdlr.HandleContractInfo).Methods("GET")
	router.HandleFunc("/api/v1/contract/events", contractHdlr.HandlePastEvents).Methods("GET")
	router.HandleFunc("/api/v1/contract/verify-tx", contractHdlr.HandleVerifyTransaction).Methods("POST")

	paymentHdlr := paymentHandler.NewPaymentHandler(paymentUC)
	router.HandleFunc("/api/v1/payment/confirm", paymentHdlr.HandleConfirmPurchase).Methods("POST")

	// --- 6. CORS ---
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.CallerHeader, middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	// --- 7. Server ---
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: c.Handler(router)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("Server shutdown failed", "err", err)
		}
	}()

	log.Info("Onchain service starting", "port", cfg.Port, "remote", cfg.Remote(), "writable", marketUC != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Crit("Could not start server", "err", err)
	}
	log.Info("Onchain service stopped")
}
