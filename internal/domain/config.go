package domain

// Protocol variants selectable as clientType.
const (
	ClientTypeAPI  = "api"
	ClientTypeHTML = "html"
)

type Config struct {
	Version    string
	ConfigPath string

	DownloadLocation string                     `yaml:"downloadLocation"`
	ClientType       string                     `yaml:"clientType"`
	APIDomains       []string                   `yaml:"apiDomains"`
	HTMLDomains      []string                   `yaml:"htmlDomains"`
	ImageDomains     []string                   `yaml:"imageDomains"`
	Proxy            string                     `yaml:"proxy"`
	RetryAttempts    int                        `yaml:"retryAttempts"`
	CacheEnabled     bool                       `yaml:"cacheEnabled"`
	DecodeImages     bool                       `yaml:"decodeImages"`
	ImageSuffix      string                     `yaml:"imageSuffix"`
	ImageThreads     int                        `yaml:"imageThreads"`
	ChapterThreads   int                        `yaml:"chapterThreads"`
	ExportFormat     string                     `yaml:"exportFormat"`
	NamingTemplate   string                     `yaml:"namingTemplate"`
	CheckInterval    int                        `yaml:"checkInterval"`
	MonitoredAlbums  map[string]*MonitoredAlbum `yaml:"monitoredAlbums"`
	AppVersion       string                     `yaml:"appVersion"`
	Secrets          SecretConfig               `yaml:"secrets"`
	Scramble         ScrambleConfig             `yaml:"scramble"`
	LogPath          string                     `yaml:"logPath"`
	LogLevel         string                     `yaml:"logLevel"`
	LogMaxSize       int                        `yaml:"logMaxSize"` // in megabytes
	LogMaxBackups    int                        `yaml:"logMaxBackups"`
}

type MonitoredAlbum struct {
	Album    string `yaml:"album"`
	Chapters string `yaml:"chapters"`
}

// SecretConfig carries the app protocol signing material. The values are an
// external contract with the remote service and rotate with its app releases.
type SecretConfig struct {
	Token        string `yaml:"token"`
	ContentToken string `yaml:"contentToken"`
	Data         string `yaml:"data"`
}

// ScrambleConfig parameterizes the segment-count table. The cutoffs are
// chapter ids published by the remote service and are liable to change,
// so they ship as config rather than constants.
type ScrambleConfig struct {
	Epoch         int64 `yaml:"epoch"`
	FixedCutoff   int64 `yaml:"fixedCutoff"`
	FixedSegments int   `yaml:"fixedSegments"`
	DivisorCutoff int64 `yaml:"divisorCutoff"`
	EarlyDivisor  int   `yaml:"earlyDivisor"`
	LateDivisor   int   `yaml:"lateDivisor"`
}
