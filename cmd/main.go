package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"keeway"
	"keeway/pkg/chain"
	"keeway/pkg/explorer"
	"keeway/pkg/handler"
	"keeway/pkg/pricing"
	"keeway/pkg/repository"
	"keeway/pkg/scheduler"
	"keeway/pkg/service"
	"keeway/pkg/utils"
	"keeway/pkg/webhook"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	if err := godotenv.Load(); err != nil {
		logrus.Infof("no .env file loaded: %s", err)
	}
	if err := initConfig(); err != nil {
		logrus.Fatalf("read config: %s", err.Error())
	}

	db, err := repository.NewPostgresDB(repository.Config{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   viper.GetString("db.dbname"),
		SSLMode:  viper.GetString("db.sslmode"),
	})
	if err != nil {
		logrus.Fatalf("connect database: %s", err.Error())
	}
	if err := repository.RunMigrations(db, viper.GetString("db.migrations")); err != nil {
		logrus.Fatalf("run migrations: %s", err.Error())
	}
	logrus.Info("database ready")

	gateway, err := chain.NewEthereum(os.Getenv("SPENDER_PRIVATE_KEY"))
	if err != nil {
		logrus.Fatalf("init chain gateway: %s", err.Error())
	}

	httpClient := resty.New().SetTimeout(viper.GetDuration("http.client_timeout"))

	repos := repository.NewRepository(db)
	services := service.NewService(service.Deps{
		Repos:     repos,
		Chain:     gateway,
		Explorers: explorer.NewRegistry(os.Getenv("COVALENT_API_KEY")),
		Webhooks:  webhookSender(httpClient),
		Mailer:    mailer(),
		Pricing:   pricing.NewCoinGecko(httpClient),
		Auth: service.AuthConfig{
			SigningKey: os.Getenv("JWT_SIGNING_KEY"),
			TokenTTL:   viper.GetDuration("auth.token_ttl"),
			Issuer:     viper.GetString("auth.issuer"),
		},
		TestMode: viper.GetBool("test_mode"),
	})

	jobs, err := scheduler.New(scheduler.Config{
		ScanEnabled:   viper.GetBool("scheduler.scan.enabled"),
		ScanInterval:  viper.GetDuration("scheduler.scan.interval"),
		DrainEnabled:  viper.GetBool("scheduler.drain.enabled"),
		DrainInterval: viper.GetDuration("scheduler.drain.interval"),
	}, services, services)
	if err != nil {
		logrus.Fatalf("init scheduler: %s", err.Error())
	}
	if err := jobs.Start(); err != nil {
		logrus.Fatalf("start scheduler: %s", err.Error())
	}

	handlers := handler.NewHandler(services, handler.Config{
		AllowedOrigins: viper.GetStringSlice("http.allowed_origins"),
		AdminKey:       os.Getenv("ADMIN_KEY"),
		Debug:          viper.GetBool("debug"),
	})

	srv := new(keeway.Server)
	go func() {
		if err := srv.Run(viper.GetString("http.port"), handlers.InitRoute()); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("run server: %s", err)
		}
	}()
	logrus.WithField("port", viper.GetString("http.port")).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit
	logrus.Info("shutting down")

	if err := jobs.Stop(); err != nil {
		logrus.Errorf("stop scheduler: %s", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown server: %s", err.Error())
	}
	if err := db.Close(); err != nil {
		logrus.Errorf("close database: %s", err.Error())
	}
}

func webhookSender(client *resty.Client) *webhook.Sender {
	if !viper.GetBool("webhooks.enabled") {
		return nil
	}
	return webhook.NewSender(client)
}

func mailer() *utils.Mailer {
	if !viper.GetBool("mail.enabled") {
		return nil
	}
	return utils.NewMailer(utils.MailConfig{
		FromEmail:        viper.GetString("mail.from_email"),
		FromName:         viper.GetString("mail.from_name"),
		SMTPHost:         viper.GetString("mail.smtp_host"),
		SMTPPort:         viper.GetInt("mail.smtp_port"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		MailjetAPIKey:    os.Getenv("MAILJET_API_KEY"),
		MailjetSecretKey: os.Getenv("MAILJET_SECRET_KEY"),
	})
}

func initConfig() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}
