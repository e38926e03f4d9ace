package cliconfig

// MergeConfig merges source config into target, updating sources tracking.
// Only non-zero values from source are applied.
func MergeConfig(target, source *CLIConfig, sourceType string) {
	if source == nil {
		return
	}
	if target.Sources == nil {
		target.Sources = make(map[string]string)
	}

	if source.AdminURL != "" {
		target.AdminURL = source.AdminURL
		target.Sources["adminUrl"] = sourceType
	}
	if source.TimeoutSeconds != 0 {
		target.TimeoutSeconds = source.TimeoutSeconds
		target.Sources["timeoutSeconds"] = sourceType
	}
	if source.AdminPort != 0 {
		target.AdminPort = source.AdminPort
		target.Sources["adminPort"] = sourceType
	}
	if source.PoolURL != "" {
		target.PoolURL = source.PoolURL
		target.Sources["poolUrl"] = sourceType
	}
	if source.ConfigFile != "" {
		target.ConfigFile = source.ConfigFile
		target.Sources["configFile"] = sourceType
	}
	if source.LogLevel != "" {
		target.LogLevel = source.LogLevel
		target.Sources["logLevel"] = sourceType
	}
	// For booleans, checking `if source.X` cannot detect an explicit false.
	// SetFields (populated during file loading) records whether the key was
	// present in the source. If SetFields is nil (config built
	// programmatically), only true values merge.
	if boolIsSet(source, "verbose") {
		target.Verbose = source.Verbose
		target.Sources["verbose"] = sourceType
	}
	if boolIsSet(source, "json") {
		target.JSON = source.JSON
		target.Sources["json"] = sourceType
	}
}

// boolIsSet reports whether a boolean field identified by its YAML key was
// explicitly set in the source config.
func boolIsSet(cfg *CLIConfig, yamlKey string) bool {
	if cfg.SetFields != nil {
		return cfg.SetFields[yamlKey]
	}
	switch yamlKey {
	case "verbose":
		return cfg.Verbose
	case "json":
		return cfg.JSON
	}
	return false
}
