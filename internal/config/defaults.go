package config

const (
	defaultConfigPath            = "~/.config/redovi/config.toml"
	defaultLogDir                = "~/.local/share/redovi/logs"
	defaultStateDir              = "~/.local/share/redovi"
	defaultFFmpeg                = "ffmpeg"
	defaultDoviTool              = "dovi_tool"
	defaultMKVMerge              = "mkvmerge"
	defaultTerminateGraceSeconds = 15
	defaultQuality               = 23
	defaultBackend               = "cuda"
	defaultPreset                = "slow"
	defaultAudioMode             = "none"
	defaultAudioBitrate          = "640k"
	defaultAudioRetention        = "keep"
	defaultWorkspaceDirName      = "temp"
	defaultWorkspaceStaleHours   = 24
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Tools: Tools{
			FFmpeg:                defaultFFmpeg,
			DoviTool:              defaultDoviTool,
			MKVMerge:              defaultMKVMerge,
			TerminateGraceSeconds: defaultTerminateGraceSeconds,
		},
		Encoding: Encoding{
			Quality: defaultQuality,
			Backend: defaultBackend,
			Preset:  defaultPreset,
		},
		Audio: Audio{
			Mode:      defaultAudioMode,
			Bitrate:   defaultAudioBitrate,
			Retention: defaultAudioRetention,
		},
		Workspace: Workspace{
			DirName:    defaultWorkspaceDirName,
			StaleHours: defaultWorkspaceStaleHours,
		},
		History: History{Enabled: true},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
