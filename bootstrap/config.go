package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"jatrackr/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger builds the logger for env. Development gets colored console
// output; every other environment gets JSON.
func InitLogger(env config.Environment, level string) (*zap.Logger, *zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var encoder zapcore.Encoder
	if env.IsDevelopment() {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder // Colored levels
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder        // Readable timestamps
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder      // Short file paths
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("environment", env.String()))
	return logger, logger.Sugar(), nil
}

// BootSettings is what InitConfig resolved, kept for startup logging
type BootSettings struct {
	DotEnvPath string
	DotEnvSet  int
}

// InitConfig runs the configuration part of the boot sequence in dir: load
// .env without overriding the process environment, resolve the deployment
// environment, load the layered settings files and read the MongoDB
// variables.
func InitConfig(dir string) (*config.Config, BootSettings, error) {
	boot := BootSettings{DotEnvPath: filepath.Join(dir, config.DotEnvFile)}

	set, err := config.LoadDotEnv(boot.DotEnvPath)
	if err != nil {
		return nil, boot, fmt.Errorf("failed to load env file: %w", err)
	}
	boot.DotEnvSet = set

	env := config.ResolveEnvironment()
	cfg, err := config.LoadConfig(env, dir)
	if err != nil {
		return nil, boot, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Database = config.DatabaseSettingsFromEnv()
	return cfg, boot, nil
}

// LogStartupConfig reports what configuration was loaded and warns about
// missing database settings.
func LogStartupConfig(cfg *config.Config, boot BootSettings, sugar *zap.SugaredLogger) {
	if boot.DotEnvSet > 0 {
		sugar.Infow("Loaded env file", "path", boot.DotEnvPath, "variables", boot.DotEnvSet)
	}

	if len(cfg.Sources) == 0 {
		sugar.Info("No settings file found, using defaults and env vars")
	}

	sugar.Infow("Config loaded",
		"environment", cfg.Environment.String(),
		"sources", cfg.Sources,
		"port", cfg.API.Port,
		"tls", cfg.API.TLS,
		"web_root", cfg.API.WebRoot)

	if missing := cfg.Database.Missing(); len(missing) > 0 {
		sugar.Warnw("Database settings incomplete; storage requests will fail until they are set",
			"missing", missing)
		return
	}
	sugar.Infow("Database settings resolved",
		"uri", cfg.Database.Redacted(),
		"database", cfg.Database.DatabaseName,
		"users_collection", cfg.Database.UsersCollectionName,
		"jobdata_collection", cfg.Database.JobDataCollectionName)
}
