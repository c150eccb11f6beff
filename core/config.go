package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var Conf *Config

func init() {
	Conf = NewConfig()
}

type Config struct {
	Env              string
	Build            string
	Debug            bool
	TestMode         bool
	AppName          string
	SecretKey        string
	FrontendBaseURL  string
	RollbarToken     string
	SendgridApiKey   string
	defaultFromEmail string

	PasswordResetTimeoutDelta time.Duration

	Server struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		AuthRateLimit             float64 // requests per second, per client IP
		AuthRateBurst             int
	}

	Database struct {
		Engine        string // postgres | sqlite | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	Loader struct {
		Concurrency int // max sibling subtrees fetched at once
	}
}

// NewConfig reads the configuration from the environment.
// ENV selects the environment (DEV by default) and is used as the variables prefix, eg: DEV_DATABASE_NAME.
// A config/.env.<env> file is loaded first when it exists.
func NewConfig() *Config {
	vpr := viper.New()

	// defaults
	vpr.SetTypeByDefaultValue(true)
	vpr.SetDefault("build", "develop")
	vpr.SetDefault("debug", true)
	vpr.SetDefault("testMode", false)
	vpr.SetDefault("appName", "Research Nest")
	vpr.SetDefault("secretKey", "u7c$1ne%2o^lb+q6!rm0x&k4ry9t(p@es3w_8dhz*vga#5fo")
	vpr.SetDefault("frontendBaseURL", "http://localhost:3000")
	vpr.SetDefault("rollbarToken", "")
	vpr.SetDefault("sendgridApiKey", "")
	vpr.SetDefault("defaultFromEmail", "Research Nest <noreply@localhost>")
	vpr.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	vpr.SetDefault("server.host", "localhost")
	vpr.SetDefault("server.port", 8000)
	vpr.SetDefault("server.debugHost", "localhost:4000")
	vpr.SetDefault("server.shutdownTimeout", 5*time.Second)
	vpr.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	vpr.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	vpr.SetDefault("server.authRateLimit", 1.0)
	vpr.SetDefault("server.authRateBurst", 5)

	vpr.SetDefault("database.engine", "postgres")
	vpr.SetDefault("database.host", "localhost")
	vpr.SetDefault("database.port", 5432)
	vpr.SetDefault("database.name", "researchnest")
	vpr.SetDefault("database.user", "researchnest")
	vpr.SetDefault("database.password", "")
	vpr.SetDefault("database.adminUser", "")
	vpr.SetDefault("database.adminPassword", "")
	vpr.SetDefault("database.disableTLS", false)
	vpr.SetDefault("database.path", "researchnest.db")

	vpr.SetDefault("loader.concurrency", 8)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		vpr.SetDefault("testMode", true)
	}
	vpr.SetEnvPrefix(env)
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(ProjectRoot(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	vpr.AutomaticEnv()

	conf := &Config{
		Env:                       env,
		Build:                     vpr.GetString("build"),
		Debug:                     vpr.GetBool("debug"),
		TestMode:                  vpr.GetBool("testMode"),
		AppName:                   vpr.GetString("appName"),
		SecretKey:                 vpr.GetString("secretKey"),
		FrontendBaseURL:           vpr.GetString("frontendBaseURL"),
		RollbarToken:              vpr.GetString("rollbarToken"),
		SendgridApiKey:            vpr.GetString("sendgridApiKey"),
		defaultFromEmail:          vpr.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: vpr.GetDuration("passwordResetTimeoutDelta"),
	}

	conf.Server.Host = vpr.GetString("server.host")
	conf.Server.Port = vpr.GetInt("server.port")
	conf.Server.DebugHost = vpr.GetString("server.debugHost")
	conf.Server.ShutdownTimeout = vpr.GetDuration("server.shutdownTimeout")
	conf.Server.JWTExpirationDelta = vpr.GetDuration("server.jwtExpirationDelta")
	conf.Server.JWTRefreshExpirationDelta = vpr.GetDuration("server.jwtRefreshExpirationDelta")
	conf.Server.AuthRateLimit = vpr.GetFloat64("server.authRateLimit")
	conf.Server.AuthRateBurst = vpr.GetInt("server.authRateBurst")

	conf.Database.Engine = strings.ToLower(vpr.GetString("database.engine"))
	conf.Database.Host = vpr.GetString("database.host")
	conf.Database.Port = vpr.GetInt("database.port")
	conf.Database.Name = vpr.GetString("database.name")
	conf.Database.User = vpr.GetString("database.user")
	conf.Database.Password = vpr.GetString("database.password")
	conf.Database.AdminUser = vpr.GetString("database.adminUser")
	conf.Database.AdminPassword = vpr.GetString("database.adminPassword")
	conf.Database.DisableTLS = vpr.GetBool("database.disableTLS")
	conf.Database.Path = vpr.GetString("database.path")

	conf.Loader.Concurrency = vpr.GetInt("loader.concurrency")
	if conf.Loader.Concurrency < 1 {
		conf.Loader.Concurrency = 1
	}
	return conf
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

// Address returns the API server listen address.
func (conf *Config) Address() string {
	return net.JoinHostPort(conf.Server.Host, strconv.Itoa(conf.Server.Port))
}

// DBAddress returns the database server address.
func (conf *Config) DBAddress() string {
	return fmt.Sprintf("%s:%d", conf.Database.Host, conf.Database.Port)
}
