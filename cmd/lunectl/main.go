// Package main is the lunectl admin CLI: user export and catalog inspection
// against the bot's MongoDB.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"

	mongorepo "lunemusic/internal/repository/mongo"
)

const connectTimeout = 10 * time.Second

var rootCmd = &cobra.Command{
	Use:   "lunectl",
	Short: "Admin tooling for the LuneMusic bot",
	Long: `lunectl reads the bot's MongoDB directly. It exports the user base as CSV
and reports catalog sizes per namespace. Settings come from flags, LUNE_*
environment variables or a lunectl.yaml config file.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./lunectl.yaml or ~/.config/lunectl/lunectl.yaml)")
	rootCmd.PersistentFlags().String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection string")
	rootCmd.PersistentFlags().String("mongo-db", "lunemusic", "MongoDB database name")
	_ = viper.BindPFlag("mongo_uri", rootCmd.PersistentFlags().Lookup("mongo-uri"))
	_ = viper.BindPFlag("mongo_db", rootCmd.PersistentFlags().Lookup("mongo-db"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("lunectl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "lunectl"))
		}
	}

	viper.SetEnvPrefix("LUNE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// connect opens the configured database. The caller disconnects the client.
func connect(ctx context.Context) (*mongo.Client, string, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	client, err := mongorepo.Connect(ctx, viper.GetString("mongo_uri"))
	if err != nil {
		return nil, "", fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, "", fmt.Errorf("ping mongo: %w", err)
	}
	return client, viper.GetString("mongo_db"), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
