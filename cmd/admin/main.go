// Command admin maintains the Redis-backed screening watchlist. It
// loads address and asset sets from files or adds single entries, using
// the same set layout the screening engine reads.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"

	"github.com/ducnm/chainscreen/internal/core/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	action := flag.String("action", "", "Action: add, remove, check or load")
	set := flag.String("set", "", "Target set: sanctions, mixers, mixers-other or privacy")
	chain := flag.String("chain", "", "Chain for the mixers set (e.g. ethereum)")
	value := flag.String("value", "", "Address or symbol for add/remove/check")
	file := flag.String("file", "", "File with one entry per line for load")
	flag.Parse()

	_ = godotenv.Load()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
	})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.URL == "" {
		slog.Error("No Redis configured; the built-in watchlist is read-only")
		os.Exit(1)
	}

	key, normalize, err := resolveSet(*set, *chain)
	if err != nil {
		slog.Error("Invalid set", "error", err)
		os.Exit(1)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch *action {
	case "add":
		requireValue(*value)
		if err := rdb.SAdd(ctx, key, normalize(*value)).Err(); err != nil {
			fail("add", err)
		}
		fmt.Printf("Added %s to %s\n", *value, key)

	case "remove":
		requireValue(*value)
		if err := rdb.SRem(ctx, key, normalize(*value)).Err(); err != nil {
			fail("remove", err)
		}
		fmt.Printf("Removed %s from %s\n", *value, key)

	case "check":
		requireValue(*value)
		member, err := rdb.SIsMember(ctx, key, normalize(*value)).Result()
		if err != nil {
			fail("check", err)
		}
		fmt.Printf("%s in %s: %v\n", *value, key, member)
		if !member {
			os.Exit(1)
		}

	case "load":
		if *file == "" {
			slog.Error("Missing -file for load action")
			os.Exit(1)
		}
		count, err := loadFile(ctx, rdb, key, *file, normalize)
		if err != nil {
			fail("load", err)
		}
		fmt.Printf("Loaded %d entries into %s\n", count, key)

	default:
		slog.Error("Unknown action", "action", *action)
		os.Exit(1)
	}
}

// resolveSet maps the flag pair onto a Redis key and the value
// normalization the screening engine expects at lookup time.
func resolveSet(set, chain string) (string, func(string) string, error) {
	lower := strings.ToLower
	upper := strings.ToUpper

	switch set {
	case "sanctions":
		return "watchlist:sanctions", lower, nil
	case "mixers":
		if chain == "" {
			return "", nil, fmt.Errorf("the mixers set needs -chain")
		}
		return "watchlist:mixers:" + chain, lower, nil
	case "mixers-other":
		return "watchlist:mixers:other", lower, nil
	case "privacy":
		return "watchlist:privacy", upper, nil
	default:
		return "", nil, fmt.Errorf("unknown set %q", set)
	}
}

func loadFile(ctx context.Context, rdb *redis.Client, key, path string, normalize func(string) string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	pipe := rdb.Pipeline()
	count := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := strings.TrimSpace(scanner.Text())
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		pipe.SAdd(ctx, key, normalize(entry))
		count++
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count, nil
}

func requireValue(value string) {
	if value == "" {
		slog.Error("Missing -value")
		os.Exit(1)
	}
}

func fail(action string, err error) {
	slog.Error("Watchlist operation failed", "action", action, "error", err)
	os.Exit(1)
}
