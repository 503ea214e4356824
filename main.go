package main

import (
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/sirupsen/logrus"

	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/config"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/handlers"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/providers"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/security"
	"github.com/Sachin-Buluswar/DebateAI-sub003/internal/services"
	_ "github.com/Sachin-Buluswar/DebateAI-sub003/pb_migrations"
)

func main() {
	pb := pocketbase.New()

	cfg := config.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	metrics := services.NewMetrics()
	hub := services.NewHub(metrics, logger)
	go hub.Run()

	guard := services.NewGuard(services.DefaultGuardConfig(), logger)

	llm := providers.NewOpenAIChat(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	speech := providers.NewOpenAISpeech(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.TTSVoice)
	dialer := providers.NewAgentDialer(cfg.RealtimeBaseURL, cfg.RealtimeAPIKey, cfg.RealtimeAgentID, logger)

	utterances := services.NewUtteranceGenerator(llm, guard, logger)
	analyzer := services.NewSessionAnalyzer(llm, guard, logger)
	bridge := services.NewCrossfireBridge(dialer, guard, logger)

	origins := security.NewOriginValidator(cfg.AllowedOrigins)

	pb.OnServe().BindFunc(func(se *core.ServeEvent) error {
		dm := services.NewDebateManager(se.App)
		registry := services.NewRegistry(hub, dm, guard, utterances, analyzer, bridge, speech, metrics, logger)

		wsHandler := handlers.NewWSHandler(hub, registry, dm, bridge, guard, speech, origins, logger)
		debateHandlers := handlers.NewDebateHandlers(dm, registry)

		se.Router.GET("/ws/debates/{debateId}", wsHandler.HandleWebSocket)
		se.Router.POST("/api/debates", debateHandlers.CreateDebate)
		se.Router.GET("/api/debates/{debateId}", debateHandlers.GetDebate)
		se.Router.GET("/api/debates/{debateId}/report", debateHandlers.GetReport)
		se.Router.POST("/api/debates/{debateId}/resume", debateHandlers.ResumeDebate)
		se.Router.GET("/api/metrics", handlers.HandleMetrics(hub))
		se.Router.GET("/api/health", handlers.HandleHealth(hub))

		return se.Next()
	})

	if err := pb.Start(); err != nil {
		log.Fatal(err)
	}
}
