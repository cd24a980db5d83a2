package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vendora_back_end/internal/catalog"
	"vendora_back_end/internal/config"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/handlers/orders"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/paypal"
	"vendora_back_end/internal/routes"
	"vendora_back_end/internal/services"
	"vendora_back_end/internal/store"
	"vendora_back_end/internal/utils"
	"vendora_back_end/internal/workers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()

	gateway := paypal.NewClient()
	log.Println("✅ PayPal initialisé")

	database.ConnectDatabases()

	session, err := database.GetOrdersSession()
	if err != nil {
		log.Fatal("❌ Session ScyllaDB indisponible :", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewScyllaStore(session)
	cat := catalog.NewScyllaCatalog(session)

	queue := notify.NewRedisQueue(database.Redis)
	dispatcher := notify.NewDispatcher(queue)
	consumer := notify.NewConsumer(queue, utils.NewMailSender())
	go consumer.Run(ctx)

	escrowService := services.NewEscrowService(st)
	orderService := services.NewOrderService(st, cat, cat, gateway, escrowService, dispatcher)

	// Workers de fond : expiration des paiements et reversement escrow
	timeoutWorker := workers.NewOrderTimeoutWorker(st, dispatcher,
		config.Duration("ORDER_PAYMENT_TIMEOUT", 30*time.Minute),
		config.Duration("ORDER_TIMEOUT_SCAN_INTERVAL", 5*time.Minute))
	go timeoutWorker.Run(ctx)

	releaseWorker := workers.NewEscrowReleaseWorker(st, escrowService, dispatcher,
		config.Duration("ESCROW_RELEASE_SCAN_INTERVAL", 15*time.Minute))
	go releaseWorker.Run(ctx)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	h := orders.NewHandler(orderService)
	routes.RegisterRoutes(r, h)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Println("🚀 Serveur Vendora lancé sur le port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Serveur HTTP :", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Arrêt demandé, extinction en cours...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("⚠️ Extinction HTTP forcée :", err)
	}

	database.CloseScylla()
	log.Println("✅ Serveur arrêté proprement")
}
