package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"FailTales/internal/model"
	"FailTales/internal/pkg"
	"FailTales/internal/repository/mysql"
	"FailTales/internal/repository/redis"
	"FailTales/internal/router"
	"FailTales/internal/service"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env不存在时静默跳过，线上直接用环境变量
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	dsn := env("MYSQL_DSN", "user:password@tcp(127.0.0.1:3306)/failtales?charset=utf8mb4&parseTime=True")
	if err := mysql.InitDB(dsn); err != nil {
		logrus.WithError(err).Fatal("mysql init failed")
	}

	redisDB, _ := strconv.Atoi(env("REDIS_DB", "0"))
	if err := redis.Init(env("REDIS_ADDR", "127.0.0.1:6379"), os.Getenv("REDIS_PASSWORD"), redisDB); err != nil {
		logrus.WithError(err).Fatal("redis init failed")
	}
	defer func() { _ = redis.Close() }()

	// 自动建表（开发阶段 OK）
	if err := mysql.DB.AutoMigrate(
		&model.User{},
		&model.Story{},
		&model.StoryTag{},
		&model.StoryLike{},
		&model.Follow{},
		&model.SocialOutbox{},
	); err != nil {
		logrus.WithError(err).Fatal("auto migrate failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 关注事件：outbox表 -> kafka；kafka不可用时退化为日志sender
	sender := service.LogSender
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		producer, err := pkg.NewKafkaProducer(pkg.KafkaConfig{
			Brokers: strings.Split(brokers, ","),
			Topic:   env("KAFKA_TOPIC", "failtales.follow.events"),
		})
		if err != nil {
			logrus.WithError(err).Fatal("kafka init failed")
		}
		defer func() { _ = producer.Close() }()
		sender = func(ctx context.Context, ob *model.SocialOutbox) error {
			return producer.Send(ctx, pkg.MakeKeyFromID(ob.Follower), []byte(ob.Payload))
		}
	}
	go service.NewOutboxRelayer(sender).Run(ctx)

	// 计数对账兜底
	go service.NewFollowCountReconciler().Run(ctx)

	smtpPort, _ := strconv.Atoi(env("SMTP_PORT", "587"))
	smtpCfg := pkg.SMTPConfig{
		Host:     env("SMTP_HOST", "smtp.example.com"),
		Port:     smtpPort,
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     env("SMTP_FROM", "FailTales <no-reply@failtales.io>"),
	}

	r := router.InitRouter(smtpCfg)
	if err := r.Run(env("HTTP_ADDR", ":8080")); err != nil {
		logrus.WithError(err).Fatal("http server exited")
	}
}
