package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	"github.com/ValentinKolb/dFeed/lib/storage/memory"
	redisstorage "github.com/ValentinKolb/dFeed/lib/storage/redis"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStorageFlags adds the common backend selection flags to a command
func SetupStorageFlags(cmd *cobra.Command) {
	key := "redis-addr"
	cmd.PersistentFlags().String(key, "localhost:6379", WrapString("The address of the redis server (only for the redis backend)"))

	key = "redis-password"
	cmd.PersistentFlags().String(key, "", WrapString("The password of the redis server (only for the redis backend)"))

	key = "redis-db"
	cmd.PersistentFlags().Int(key, 0, WrapString("The redis database number (only for the redis backend)"))

	key = "key-prefix"
	cmd.PersistentFlags().String(key, "dfeed", WrapString("Prefix for all storage keys"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dfeed")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// Storages bundles the three backends a feed deployment needs.
type Storages struct {
	Timelines  storage.ITimelineStorage
	Activities storage.IActivityStorage
	Lists      storage.IListsStorage
}

// GetStorages creates the storage backends based on configuration
func GetStorages() (*Storages, error) {
	codec := serializer.NewCSVSerializer(activity.DefaultRegistry())

	switch viper.GetString("backend") {
	case "memory":
		return &Storages{
			Timelines:  memory.NewTimelineStorage(),
			Activities: memory.NewActivityStorage(codec),
			Lists:      memory.NewListsStorage(),
		}, nil
	case "redis":
		client, err := redisstorage.NewClient(redisstorage.Config{
			Addr:     viper.GetString("redis-addr"),
			Password: viper.GetString("redis-password"),
			DB:       viper.GetInt("redis-db"),
		})
		if err != nil {
			return nil, err
		}
		prefix := viper.GetString("key-prefix")
		return &Storages{
			Timelines:  redisstorage.NewTimelineStorage(client, prefix),
			Activities: redisstorage.NewActivityStorage(client, prefix, codec),
			Lists:      redisstorage.NewListsStorage(client, prefix),
		}, nil
	default:
		return nil, fmt.Errorf("invalid backend %s", viper.GetString("backend"))
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
