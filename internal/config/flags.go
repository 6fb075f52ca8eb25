package config

import (
	"flag"
)

// Flags holds command-line overrides. Only flags that were explicitly set on the
// command line are applied, so values from the config file survive otherwise.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string
	EnvPath    string

	model          string
	english        bool
	energy         int
	pause          float64
	dynamicEnergy  bool
	staticEnergy   bool
	phraseLimit    float64
	wakeWord       string
	verbose        bool
	ttsVoice       string
	ttsModel       string
	provider       string
	chatModel      string
	queueCapacity  int
	overflowPolicy string
	queryOverflow  string
	logLevel       string
	logFormat      string
}

// RegisterFlags defines the command-line options on fs
func RegisterFlags(fs *flag.FlagSet) *Flags {
	d := Default()
	f := &Flags{fs: fs}

	fs.StringVar(&f.ConfigPath, "config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	fs.StringVar(&f.EnvPath, "env", ".env", "Path to the .env file holding API_KEY")

	fs.StringVar(&f.model, "model", d.Transcription.ModelSize, "Model to use (tiny, base, small, medium, large)")
	fs.BoolVar(&f.english, "english", d.Transcription.EnglishOnly, "Whether to use English model")
	fs.IntVar(&f.energy, "energy", d.Audio.EnergyThreshold, "Energy level for mic detection")
	fs.Float64Var(&f.pause, "pause", d.Audio.PauseSeconds, "Pause time before entry ends")
	fs.BoolVar(&f.dynamicEnergy, "dynamic_energy", d.Audio.DynamicEnergy, "Enable dynamic energy")
	fs.BoolVar(&f.staticEnergy, "static_energy", d.Audio.StaticEnergy, "Skip ambient-noise calibration")
	fs.Float64Var(&f.phraseLimit, "phrase_time_limit", d.Audio.PhraseTimeLimitSeconds, "Maximum utterance length in seconds (0 = unlimited)")
	fs.StringVar(&f.wakeWord, "wake_word", d.Transcription.WakeWord, "Wake word to listen for")
	fs.BoolVar(&f.verbose, "verbose", d.Logging.Verbose, "Enable verbose output")
	fs.StringVar(&f.ttsVoice, "tts_voice", d.TTS.Voice, "OpenAI TTS voice to use (alloy, echo, fable, onyx, nova, shimmer)")
	fs.StringVar(&f.ttsModel, "tts_model", d.TTS.Model, "OpenAI TTS model to use (tts-1, tts-1-hd)")
	fs.StringVar(&f.provider, "provider", d.Response.Provider, "Chat provider (openai, gemini)")
	fs.StringVar(&f.chatModel, "chat_model", d.Response.Model, "Chat model name")
	fs.IntVar(&f.queueCapacity, "queue_capacity", d.Pipeline.QueueCapacity, "Hand-off queue capacity (0 = unbounded)")
	fs.StringVar(&f.overflowPolicy, "overflow", d.Pipeline.OverflowPolicy, "Audio queue overflow policy (drop_oldest, drop_newest, block)")
	fs.StringVar(&f.queryOverflow, "query_overflow", d.Pipeline.QueryOverflowPolicy, "Query queue overflow policy (drop_oldest, drop_newest, block)")
	fs.StringVar(&f.logLevel, "log_level", d.Logging.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log_format", d.Logging.Format, "Log format (console, json)")

	return f
}

// Apply copies explicitly set flags onto c
func (f *Flags) Apply(c *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model":
			c.Transcription.ModelSize = f.model
		case "english":
			c.Transcription.EnglishOnly = f.english
		case "energy":
			c.Audio.EnergyThreshold = f.energy
		case "pause":
			c.Audio.PauseSeconds = f.pause
		case "dynamic_energy":
			c.Audio.DynamicEnergy = f.dynamicEnergy
		case "static_energy":
			c.Audio.StaticEnergy = f.staticEnergy
		case "phrase_time_limit":
			c.Audio.PhraseTimeLimitSeconds = f.phraseLimit
		case "wake_word":
			c.Transcription.WakeWord = f.wakeWord
		case "verbose":
			c.Logging.Verbose = f.verbose
		case "tts_voice":
			c.TTS.Voice = f.ttsVoice
		case "tts_model":
			c.TTS.Model = f.ttsModel
		case "provider":
			c.Response.Provider = f.provider
		case "chat_model":
			c.Response.Model = f.chatModel
		case "queue_capacity":
			c.Pipeline.QueueCapacity = f.queueCapacity
		case "overflow":
			c.Pipeline.OverflowPolicy = f.overflowPolicy
		case "query_overflow":
			c.Pipeline.QueryOverflowPolicy = f.queryOverflow
		case "log_level":
			c.Logging.Level = f.logLevel
		case "log_format":
			c.Logging.Format = f.logFormat
		}
	})
}
