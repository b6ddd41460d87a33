package rulesengine

import (
	"fmt"
	"os"
	"strings"
)

// Debug logs the message if the DEBUG environment variable contains
// "ruleweight".
func Debug(message string) {
	defer func() {
		if r := recover(); r != nil {
			// swallow: debug logging must never crash evaluation
		}
	}()

	if isDebugMode() {
		fmt.Println(message)
	}
}

// Debugf formats and logs like Debug.
func Debugf(format string, args ...interface{}) {
	if isDebugMode() {
		Debug(fmt.Sprintf(format, args...))
	}
}

func isDebugMode() bool {
	debugEnv, exists := os.LookupEnv("DEBUG")
	return exists && strings.Contains(debugEnv, "ruleweight")
}
