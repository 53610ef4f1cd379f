/*
Copyright The Kubedeploy Contributors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package log contains the logging subsystem of kubedeploy
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the logger used by every package of kubedeploy. It discards
// everything until Configure or SetLogger is called.
var Log = zap.NewNop().Sugar()

// SetLogger will set the backing zap implementation
func SetLogger(logger *zap.SugaredLogger) {
	Log = logger
}

// Configure builds a console logger writing to standard error,
// honoring the verbosity requested on the command line
func Configure(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.DisableStacktrace = true
	config.DisableCaller = true

	logger, err := config.Build()
	if err != nil {
		// the development config cannot fail to build, but degrade
		// to a disabled logger instead of panicking in a CLI
		return
	}

	SetLogger(logger.Sugar())
}
