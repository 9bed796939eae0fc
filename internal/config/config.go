package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser          string
	DBPassword      string
	DBName          string
	DBNameTest      string
	DBHost          string
	DBPort          string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	BotToken        string
	ChainRPCURL     string
	ChainRPCURLTest string
	ColdkeySecret   string
	Maintainer      string
	HelpStr         string
	ExportURL       string
	CommunityChatID int64
	Testing         bool
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	communityRaw := getEnv("COMMUNITY_CHAT_ID", "0")
	communityID, err := strconv.ParseInt(communityRaw, 10, 64)
	if err != nil {
		log.Printf("Invalid COMMUNITY_CHAT_ID %q, member resolution will fail: %v", communityRaw, err)
	}
	testing, _ := strconv.ParseBool(getEnv("TESTING", "false"))

	return &Config{
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "taotip"),
		DBNameTest:      getEnv("DB_NAME_TEST", "taotip_test"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		BotToken:        getEnv("TELEGRAM_BOT_TOKEN", ""),
		ChainRPCURL:     getEnv("CHAIN_RPC_URL", ""),
		ChainRPCURLTest: getEnv("CHAIN_RPC_URL_TEST", ""),
		ColdkeySecret:   getEnv("COLDKEY_SECRET", ""),
		Maintainer:      getEnv("MAINTAINER", "the maintainer"),
		HelpStr:         getEnv("HELP_STR", "/tip, /withdraw, /deposit, /balance"),
		ExportURL:       getEnv("EXPORT_URL", ""),
		CommunityChatID: communityID,
		Testing:         testing,
	}
}

// LedgerDBName returns the ledger database name, honoring the TESTING switch.
func (c *Config) LedgerDBName() string {
	if c.Testing {
		return c.DBNameTest
	}
	return c.DBName
}

// ChainEndpoint returns the chain gateway URL, test variant under TESTING.
func (c *Config) ChainEndpoint() string {
	if c.Testing && c.ChainRPCURLTest != "" {
		return c.ChainRPCURLTest
	}
	return c.ChainRPCURL
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
