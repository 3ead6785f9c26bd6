package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/blurblog/blur/internal/blogservice"
	"github.com/blurblog/blur/internal/common"
	"github.com/blurblog/blur/internal/engageservice"
	"github.com/blurblog/blur/internal/mailservice"
	"github.com/blurblog/blur/internal/userservice"
)

type application struct {
	config        *Config
	logger        *slog.Logger
	userService   *userservice.UserService
	blogService   *blogservice.BlogService
	engageService *engageservice.EngageService
	mailService   *mailservice.MailService
	broker        *common.MessageBroker
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, 10, 5, 15*time.Minute)
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	broker, err := common.NewMessageBroker(URI)
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupUserExchange(broker)
	if err != nil {
		logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	err = common.SetupReportExchange(broker)
	if err != nil {
		logger.Error("failed to setup the report exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	blobs, err := common.NewFileStore(cfg.BlobDir)
	if err != nil {
		logger.Error("failed to open the blob store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cache := common.NewCache(5*time.Minute, 10*time.Minute)

	blogService := blogservice.NewBlogService(db, cache, blobs, logger)

	app := &application{
		config:        cfg,
		logger:        logger,
		userService:   userservice.NewUserService(db, broker, cache),
		blogService:   blogService,
		engageService: engageservice.NewEngageService(db, blogService, broker),
		mailService:   mailservice.NewMailService(broker, cfg.Mail.Host, cfg.Mail.User, cfg.Mail.Password, cfg.Mail.Sender, cfg.Mail.Moderator, cfg.Mail.Port, logger),
		broker:        broker,
	}

	app.mailService.SendActivationEmail()
	app.mailService.SendReportNotification()
	defer app.mailService.Close()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
