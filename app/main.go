package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/yqhuang/forumist/internal/analyticsservice"
	"github.com/yqhuang/forumist/internal/categoryservice"
	"github.com/yqhuang/forumist/internal/commentservice"
	"github.com/yqhuang/forumist/internal/common"
	"github.com/yqhuang/forumist/internal/mailservice"
	"github.com/yqhuang/forumist/internal/postservice"
	"github.com/yqhuang/forumist/internal/userservice"
)

type application struct {
	config           *Config
	logger           *slog.Logger
	cache            *common.Cache
	userService      *userservice.UserService
	analyticsService *analyticsservice.AnalyticsService
	postService      *postservice.PostService
	categoryService  *categoryservice.CategoryService
	commentService   *commentservice.CommentService
	mailService      *mailservice.MailService
	broker           *common.MessageBroker
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := loadConfig(".env")
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(common.DBConfig{
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		User:         cfg.DBUser,
		Password:     cfg.DBPassword,
		Name:         cfg.DBName,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		MaxIdleTime:  15 * time.Minute,
	})
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	URI := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort)
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

	// one in-process cache shared by every service facade
	cache := common.NewCache(common.DefaultCacheTTL, 10*time.Minute)

	app := &application{
		config:           cfg,
		logger:           logger,
		cache:            cache,
		userService:      userservice.NewUserService(db, broker, cache),
		analyticsService: analyticsservice.NewAnalyticsService(db, cache),
		postService:      postservice.NewPostService(db, cache),
		categoryService:  categoryservice.NewCategoryService(db, cache),
		commentService:   commentservice.NewCommentService(db, cache),
		broker:           broker,
		mailService:      mailservice.NewMailService(broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, logger),
	}

	app.mailService.SendActivationEmail()
	app.mailService.SendPasswordResetEmail()
	defer app.mailService.Close()

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
