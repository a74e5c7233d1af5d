package validation

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/options"
	"github.com/lsst-sqre/ltd-proxy/pkg/logger"
)

// configureLogger is responsible for configuring the logger based on the options given
func configureLogger(o options.Logging, msgs []string) []string {
	// Setup the log file
	if len(o.Filename) > 0 {
		// Validate that the file/dir can be written
		file, err := os.OpenFile(o.Filename, os.O_WRONLY|os.O_CREATE, 0666)
		if err != nil {
			if os.IsPermission(err) {
				return append(msgs, "unable to write to log file: "+o.Filename)
			}
		}
		file.Close()

		logger.Printf("Redirecting logging to file: %s", o.Filename)

		logWriter := &lumberjack.Logger{
			Filename:   o.Filename,
			MaxSize:    o.MaxSize, // megabytes
			MaxAge:     o.MaxAge,  // days
			MaxBackups: o.MaxBackups,
			Compress:   o.Compress,
		}

		logger.SetOutput(logWriter)
	}

	// Pass configuration values to the standard logger
	logger.SetAuthEnabled(o.AuthEnabled)
	logger.SetReqEnabled(o.RequestEnabled)
	logger.SetStandardTemplate(o.StandardFormat)
	logger.SetAuthTemplate(o.AuthFormat)
	logger.SetReqTemplate(o.RequestFormat)

	return msgs
}
