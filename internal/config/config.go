package config

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gallarr/internal/domain"
	"gallarr/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var configTemplate = `# config.yaml

# Download Location
# Needs to be filled out correctly, e.g. "/data/downloads/galleries"
#
# Default: ""
#
downloadLocation: ""

# Client Type
# Which protocol variant to talk to the service with
#
# Default: "api"
#
# Options: "api", "html"
#
clientType: "api"

# API Domains
# Ranked mirror list for the app protocol, first entry is tried first
#
#apiDomains:
#  - "www.cdnmhwscc.vip"
#  - "www.cdnblackmyth.club"
#  - "www.cdnmhws.cc"
#  - "www.cdnuc.vip"

# HTML Domains
# Ranked mirror list for the web protocol
#
#htmlDomains:
#  - "18comic.vip"
#  - "18comic.org"
#  - "jmcomic.me"
#  - "jmcomic1.me"

# Image Domains
# Ranked mirror list for the image CDN
#
#imageDomains:
#  - "cdn-msp.jmapiproxy1.cc"
#  - "cdn-msp2.jmapiproxy1.cc"
#  - "cdn-msp3.jmapiproxy2.cc"

# Proxy
# Forwarded to every outbound request, e.g. "socks5://127.0.0.1:1080"
#
# Optional
#
#proxy: ""

# Retry Attempts
# How many passes over the domain list before a request is given up
#
# Default: 3
#
retryAttempts: 3

# Cache
# Skip downloading files that already exist on disk
#
# Default: true
#
cacheEnabled: true

# Decode Images
# Reassemble scrambled images before saving. Disable to store the raw tiles
#
# Default: true
#
decodeImages: true

# Image Suffix
# Format downloaded images are stored in
#
# Default: ".jpg"
#
# Options: ".jpg", ".png"
#
imageSuffix: ".jpg"

# Image Threads
# How many images download in parallel across all chapters
#
# Default: 30
#
imageThreads: 30

# Chapter Threads
# How many chapters download in parallel
#
# Default: 16
#
chapterThreads: 16

# Export Format
# Package finished chapters into an archive next to the image directory
#
# Optional
#
# Options: "cbz", "pdf"
#
#exportFormat: ""

# Naming Template
# This can be used to change how exported chapters will be named
# The default will result in something like this: Album Ch. 001 - Chapter Title
#
# Default: {album:<.>} Ch. {num:3}{title: - <.>}
#
namingTemplate: "{album:<.>} Ch. {num:3}{title: - <.>}"

# Check interval in minutes
#
# Default: 15
#
checkInterval: 15

# Monitored Albums
# Here you can define which albums you want to monitor
#
monitoredAlbums:
  # Custom name you can give the entry to easily distinguish between them
  #
  Example Album:
    # Album id, a "JM" prefix is accepted
    #
    album: "JM438516"

    # Chapters to keep downloaded
    #
    # Options: "all", "latest", ranges like "1-3,7"
    #
    chapters: "all"

# App Version
# Sent with every app-protocol request as part of the token parameter
#
# Default: "1.8.0"
#
#appVersion: "1.8.0"

# Secrets
# Signing material for the app protocol. These rotate with the service's
# own app releases, override them when requests start failing to decode
#
#secrets:
#  token: "18comicAPP"
#  contentToken: "18comicAPPContent"
#  data: "185Hcomic3PAPP7R"

# Scramble Table
# Chapter id thresholds selecting the descramble band count. Published by
# the service and liable to change
#
#scramble:
#  epoch: 220980
#  fixedCutoff: 268850
#  fixedSegments: 10
#  divisorCutoff: 421925
#  earlyDivisor: 10
#  lateDivisor: 8

# gallarr logs file
# If not defined, logs to stdout
# Make sure to use forward slashes and include the filename with extension. e.g. "logs/gallarr.log", "C:/gallarr/logs/gallarr.log"
#
# Optional
#
#logPath: ""

# Log level
#
# Default: "DEBUG"
#
# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"
#
logLevel: "DEBUG"

# Log Max Size
#
# Default: 50
#
# Max log size in megabytes
#
#logMaxSize: 50

# Log Max Backups
#
# Default: 3
#
# Max amount of old log files
#
#logMaxBackups = 3
`

func (c *AppConfig) writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(configPath, os.ModePerm)
		if err != nil {
			log.Println(err)
			return err
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {

		f, err := os.Create(cfgPath)
		if err != nil { // perm 0666
			// handle failed create
			log.Printf("error creating file: %q", err)
			return err
		}
		defer f.Close()

		if _, err = f.WriteString(configTemplate); err != nil {
			log.Printf("error writing contents to file: %v %q", configPath, err)
			return err
		}

		return f.Sync()
	}

	return nil
}

type Config interface {
	UpdateConfig() error
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	m      *sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{
		m: new(sync.Mutex),
	}
	c.defaults()
	c.Config = &domain.Config{
		Version:    version,
		ConfigPath: configPath,
	}

	c.load(configPath)
	c.loadFromEnv()

	if c.Config.DownloadLocation == "" {
		log.Fatalf("downloadLocation can't be empty, please provide a valid path to the directory you want your downloads to go to")
	}

	return c
}

func (c *AppConfig) defaults() {
	viper.SetDefault("downloadLocation", "")
	viper.SetDefault("clientType", domain.ClientTypeAPI)
	viper.SetDefault("apiDomains", []string{
		"www.cdnmhwscc.vip",
		"www.cdnblackmyth.club",
		"www.cdnmhws.cc",
		"www.cdnuc.vip",
	})
	viper.SetDefault("htmlDomains", []string{
		"18comic.vip",
		"18comic.org",
		"jmcomic.me",
		"jmcomic1.me",
	})
	viper.SetDefault("imageDomains", []string{
		"cdn-msp.jmapiproxy1.cc",
		"cdn-msp2.jmapiproxy1.cc",
		"cdn-msp3.jmapiproxy2.cc",
	})
	viper.SetDefault("proxy", "")
	viper.SetDefault("retryAttempts", 3)
	viper.SetDefault("cacheEnabled", true)
	viper.SetDefault("decodeImages", true)
	viper.SetDefault("imageSuffix", ".jpg")
	viper.SetDefault("imageThreads", 30)
	viper.SetDefault("chapterThreads", 16)
	viper.SetDefault("exportFormat", "")
	viper.SetDefault("namingTemplate", "{album:<.>} Ch. {num:3}{title: - <.>}")
	viper.SetDefault("checkInterval", 15)
	viper.SetDefault("monitoredAlbums", make(map[string]*domain.MonitoredAlbum))
	viper.SetDefault("appVersion", "1.8.0")
	viper.SetDefault("secrets.token", "18comicAPP")
	viper.SetDefault("secrets.contentToken", "18comicAPPContent")
	viper.SetDefault("secrets.data", "185Hcomic3PAPP7R")
	viper.SetDefault("scramble.epoch", 220980)
	viper.SetDefault("scramble.fixedCutoff", 268850)
	viper.SetDefault("scramble.fixedSegments", 10)
	viper.SetDefault("scramble.divisorCutoff", 421925)
	viper.SetDefault("scramble.earlyDivisor", 10)
	viper.SetDefault("scramble.lateDivisor", 8)
	viper.SetDefault("logPath", "")
	viper.SetDefault("logLevel", "DEBUG")
	viper.SetDefault("logMaxSize", 50)
	viper.SetDefault("logMaxBackups", 3)
}

func (c *AppConfig) loadFromEnv() {
	prefix := "GALLARR__"

	envs := os.Environ()
	for _, env := range envs {
		if strings.HasPrefix(env, prefix) {
			envPair := strings.SplitN(env, "=", 2)

			if envPair[1] != "" {
				switch envPair[0] {
				case prefix + "DOWNLOAD_LOCATION":
					c.Config.DownloadLocation = envPair[1]
				case prefix + "CLIENT_TYPE":
					c.Config.ClientType = envPair[1]
				case prefix + "PROXY":
					c.Config.Proxy = envPair[1]
				case prefix + "RETRY_ATTEMPTS":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.RetryAttempts = int(i)
					}
				case prefix + "CACHE_ENABLED":
					if b, err := strconv.ParseBool(envPair[1]); err == nil {
						c.Config.CacheEnabled = b
					}
				case prefix + "DECODE_IMAGES":
					if b, err := strconv.ParseBool(envPair[1]); err == nil {
						c.Config.DecodeImages = b
					}
				case prefix + "IMAGE_SUFFIX":
					c.Config.ImageSuffix = envPair[1]
				case prefix + "IMAGE_THREADS":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.ImageThreads = int(i)
					}
				case prefix + "CHAPTER_THREADS":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.ChapterThreads = int(i)
					}
				case prefix + "EXPORT_FORMAT":
					c.Config.ExportFormat = envPair[1]
				case prefix + "NAMING_TEMPLATE":
					c.Config.NamingTemplate = envPair[1]
				case prefix + "CHECK_INTERVAL":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.CheckInterval = int(i)
					}
				case prefix + "APP_VERSION":
					c.Config.AppVersion = envPair[1]
				case prefix + "LOG_LEVEL":
					c.Config.LogLevel = envPair[1]
				case prefix + "LOG_PATH":
					c.Config.LogPath = envPair[1]
				case prefix + "LOG_MAX_SIZE":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.LogMaxSize = int(i)
					}
				case prefix + "LOG_MAX_BACKUPS":
					if i, _ := strconv.ParseInt(envPair[1], 10, 32); i > 0 {
						c.Config.LogMaxBackups = int(i)
					}
				}
			}
		}
	}
}

func (c *AppConfig) load(configPath string) {
	viper.SetConfigType("yaml")

	// clean trailing slash from configPath
	configPath = path.Clean(configPath)
	if configPath != "" {
		// check if path and file exists
		// if not, create path and file
		if err := c.writeConfig(configPath, "config.yaml"); err != nil {
			log.Printf("write error: %q", err)
		}

		viper.SetConfigFile(path.Join(configPath, "config.yaml"))
	} else {
		viper.SetConfigName("config")

		// Search config in directories
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/gallarr")
		viper.AddConfigPath("$HOME/.gallarr")
	}

	// read config
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("config read error: %q", err)
	}

	if err := viper.Unmarshal(c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file: %v: err %q", viper.ConfigFileUsed(), err)
	}
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	viper.WatchConfig()

	viper.OnConfigChange(func(_ fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		logLevel := viper.GetString("logLevel")
		c.Config.LogLevel = logLevel
		log.SetLogLevel(c.Config.LogLevel)

		logPath := viper.GetString("logPath")
		c.Config.LogPath = logPath

		log.Debug().Msg("config file reloaded!")
	})
}

func (c *AppConfig) UpdateConfig() error {
	filePath := path.Join(c.Config.ConfigPath, "config.yaml")

	f, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("could not read config filePath: %s: %w", filePath, err)
	}

	lines := strings.Split(string(f), "\n")
	lines = c.processLines(lines)

	output := strings.Join(lines, "\n")
	if err := os.WriteFile(filePath, []byte(output), 0o644); err != nil {
		return fmt.Errorf("could not write config file: %s: %w", filePath, err)
	}

	return nil
}

func (c *AppConfig) processLines(lines []string) []string {
	// keep track of not found values to append at bottom
	var (
		foundLineLogLevel = false
		foundLineLogPath  = false
	)

	for i, line := range lines {
		if !foundLineLogLevel && strings.Contains(line, "logLevel:") {
			lines[i] = fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel)
			foundLineLogLevel = true
		}
		if !foundLineLogPath && strings.Contains(line, "logPath:") {
			if c.Config.LogPath == "" {
				lines[i] = `#logPath: ""`
			} else {
				lines[i] = fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath)
			}
			foundLineLogPath = true
		}
	}

	if !foundLineLogLevel {
		lines = append(lines, "# Log level")
		lines = append(lines, "#")
		lines = append(lines, `# Default: "DEBUG"`)
		lines = append(lines, "#")
		lines = append(lines, `# Options: "ERROR", "DEBUG", "INFO", "WARN", "TRACE"`)
		lines = append(lines, "#")
		lines = append(lines, fmt.Sprintf(`logLevel: "%s"`, c.Config.LogLevel))
	}

	if !foundLineLogPath {
		lines = append(lines, "# Log Path")
		lines = append(lines, "#")
		lines = append(lines, "# Optional")
		lines = append(lines, "#")
		if c.Config.LogPath == "" {
			lines = append(lines, `#logPath: ""`)
		} else {
			lines = append(lines, fmt.Sprintf(`logPath: "%s"`, c.Config.LogPath))
		}
	}

	return lines
}
