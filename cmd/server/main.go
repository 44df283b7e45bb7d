package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/gatemail/internal/app"
	"github.com/gatemail/internal/config"
	"github.com/gatemail/internal/logger"
	"github.com/gatemail/internal/models"

	"github.com/gin-gonic/gin"
)

const banner = "\033[95m== GateMail ==\033[0m \033[1m受保护内容门户 / 邮件营销服务\033[0m\n" +
	"\033[2mmodes: all | api | worker    health: GET /health\033[0m"

// 常见占位密钥片段，生产环境出现即拒绝启动
var placeholderSecrets = []string{"change-me", "change-in-production", "your-secret-key", "gatemail-dev"}

func main() {
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all | api | worker")
	flag.Parse()
	if _, err := app.ParseMode(mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Println(banner)

	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	release := cfg.Server.Mode == "release"
	if release {
		gin.SetMode(gin.ReleaseMode)
	}

	checkSecret(stdLog, release, "jwt.secret", cfg.JWT.SecretKey)
	checkSecret(stdLog, release, "crypto.secret_key", cfg.Crypto.SecretKey)

	if err := prepareDatabase(cfg); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}
	seedDefaultAdmin(stdLog, release)

	err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	})
	if err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func prepareDatabase(cfg *config.Config) error {
	pool := cfg.Database.Pool
	err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           pool.MaxOpenConns,
		MaxIdleConns:           pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// seedDefaultAdmin release 模式下必须显式提供初始密码
func seedDefaultAdmin(stdLog *log.Logger, release bool) {
	username := os.Getenv("GATEMAIL_DEFAULT_ADMIN_USERNAME")
	password := os.Getenv("GATEMAIL_DEFAULT_ADMIN_PASSWORD")
	if release && password == "" {
		stdLog.Printf("警告: 未设置 GATEMAIL_DEFAULT_ADMIN_PASSWORD，跳过默认管理员初始化")
		return
	}
	if err := models.InitDefaultAdmin(username, password); err != nil {
		stdLog.Printf("警告: 初始化默认管理员失败: %v", err)
	}
}

func checkSecret(stdLog *log.Logger, release bool, name, secret string) {
	if !isWeakSecret(secret) {
		return
	}
	if release {
		stdLog.Fatalf("%s 过弱或仍为占位值，请配置至少 32 位的随机密钥", name)
	}
	stdLog.Printf("警告: %s 过弱或仍为占位值，生产环境前请更换", name)
}

func isWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	lower := strings.ToLower(secret)
	for _, fragment := range placeholderSecrets {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
