package logger

// Helpers that swap or clear the global loggers under their mutex. A logger
// being replaced is closed first.

func initGlobalFileLogger(logger *FileLogger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalFileLogger != nil {
		globalFileLogger.Close()
	}
	globalFileLogger = logger
}

func closeGlobalFileLogger() error {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()

	if globalFileLogger != nil {
		err := globalFileLogger.Close()
		globalFileLogger = nil
		return err
	}
	return nil
}

func initGlobalJSONLLogger(logger *JSONLLogger) {
	globalJSONLMu.Lock()
	defer globalJSONLMu.Unlock()

	if globalJSONLLogger != nil {
		globalJSONLLogger.Close()
	}
	globalJSONLLogger = logger
}

func closeGlobalJSONLLogger() error {
	globalJSONLMu.Lock()
	defer globalJSONLMu.Unlock()

	if globalJSONLLogger != nil {
		err := globalJSONLLogger.Close()
		globalJSONLLogger = nil
		return err
	}
	return nil
}

func initGlobalMarkdownLogger(logger *MarkdownLogger) {
	globalMarkdownMu.Lock()
	defer globalMarkdownMu.Unlock()

	if globalMarkdownLogger != nil {
		globalMarkdownLogger.Close()
	}
	globalMarkdownLogger = logger
}

func closeGlobalMarkdownLogger() error {
	globalMarkdownMu.Lock()
	defer globalMarkdownMu.Unlock()

	if globalMarkdownLogger != nil {
		err := globalMarkdownLogger.Close()
		globalMarkdownLogger = nil
		return err
	}
	return nil
}

// CloseAll closes every global logger, returning the first error
func CloseAll() error {
	var first error
	for _, closeFn := range []func() error{closeGlobalMarkdownLogger, closeGlobalJSONLLogger, closeGlobalFileLogger} {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
