//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/faq-chat/internal/bootstrap"
	"github.com/yanqian/faq-chat/internal/domain/chat"
	"github.com/yanqian/faq-chat/internal/infra/config"
	httpiface "github.com/yanqian/faq-chat/internal/interface/http"
	"github.com/yanqian/faq-chat/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideLanguageRouter,
		provideContentStore,
		provideEmbedder,
		provideKnowledgeCache,
		provideRetriever,
		provideSessionStore,
		provideChatConfig,
		provideShutdownHooks,
		chat.NewService,
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
