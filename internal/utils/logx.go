package utils

import (
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"edge_gate/internal/dataType"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fallbackHost collects lines whose Host is unusable as a directory name or
// arrives after MaxHostLoggers hosts already have their own files
const fallbackHost = "_"

// MaxHostLoggers caps the per-host logger map; each entry holds three open files
const MaxHostLoggers = 64

var hostValidator = validator.New()

// logHost maps a client supplied Host header onto a safe directory name
func logHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || host == "." || host == ".." {
		return fallbackHost
	}
	if hostValidator.Var(host, "hostname_rfc1123") != nil {
		return fallbackHost
	}
	return host
}

type LogxManager struct {
	basePath string
	out      io.Writer
	loggers  map[string]*zap.Logger
	mu       sync.RWMutex
}

// NewManager writes per-host info/error/debug files under base.
// An empty base sends every level to stdout.
func NewManager(base string) *LogxManager {
	m := &LogxManager{basePath: base, loggers: make(map[string]*zap.Logger)}
	if base == "" {
		m.out = os.Stdout
		return m
	}
	if err := os.MkdirAll(m.basePath, 0744); err != nil {
		log.Printf("failed to create base log dir %s: %v", m.basePath, err)
	}
	return m
}

// NewWriterManager sends every level of every host to w
func NewWriterManager(w io.Writer) *LogxManager {
	return &LogxManager{out: w, loggers: make(map[string]*zap.Logger)}
}

func (m *LogxManager) getLogger(host string) *zap.Logger {
	host = logHost(host)
	m.mu.RLock()
	if lg, ok := m.loggers[host]; ok {
		m.mu.RUnlock()
		return lg
	}
	m.mu.RUnlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if lg, ok := m.loggers[host]; ok {
		return lg
	}
	if len(m.loggers) >= MaxHostLoggers {
		if lg, ok := m.loggers[fallbackHost]; ok {
			return lg
		}
		host = fallbackHost
	}

	encCfg := zapcore.EncoderConfig{MessageKey: "msg", LineEnding: zapcore.DefaultLineEnding}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	var lg *zap.Logger
	if m.out != nil {
		lg = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(m.out), zapcore.DebugLevel))
	} else {
		dir := filepath.Join(m.basePath, host)
		if err := os.MkdirAll(dir, 0744); err != nil {
			log.Printf("failed to create log dir %s: %v", dir, err)
		}

		infoOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "info.log")))
		errorOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "error.log")))
		dbgOut := zapcore.AddSync(m.openLogFile(filepath.Join(dir, "debug.log")))

		infoLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.InfoLevel })
		errLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l >= zapcore.ErrorLevel })
		dbgLv := zap.LevelEnablerFunc(func(l zapcore.Level) bool { return l == zapcore.DebugLevel })

		lg = zap.New(zapcore.NewTee(
			zapcore.NewCore(encoder, infoOut, infoLv),
			zapcore.NewCore(encoder, errorOut, errLv),
			zapcore.NewCore(encoder, dbgOut, dbgLv),
		))
	}
	m.loggers[host] = lg
	return lg
}

func (m *LogxManager) openLogFile(path string) *os.File {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", path, err)
		return os.Stdout
	}
	return f
}

// Sync flushes every logger
func (m *LogxManager) Sync() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lg := range m.loggers {
		_ = lg.Sync()
	}
}

func formatLine(reqData dataType.UserRequest, msg, msg2 string) string {
	return fmt.Sprintf("%s - - [%s] %s %s %s %s %s %s",
		reqData.RemoteIP,
		time.Now().Format("02/Jan/2006:15:04:05 -0700"),
		msg,
		reqData.Host,
		reqData.Uri,
		reqData.RequestID,
		reqData.UserAgent,
		msg2,
	)
}

func (m *LogxManager) LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Info(formatLine(reqData, msg, msg2))
}

func (m *LogxManager) LogError(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Error(formatLine(reqData, msg, msg2))
}

func (m *LogxManager) LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	m.getLogger(reqData.Host).Debug(formatLine(reqData, msg, msg2) + " " + DescribeUserAgent(reqData.UserAgent))
}

var (
	defaultMu      sync.RWMutex
	defaultManager = NewManager("")
)

// SetDefault replaces the manager used by the package-level Log functions
func SetDefault(m *LogxManager) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultManager = m
}

func current() *LogxManager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultManager
}

func LogInfo(reqData dataType.UserRequest, msg, msg2 string) {
	current().LogInfo(reqData, msg, msg2)
}

func LogError(reqData dataType.UserRequest, msg, msg2 string) {
	current().LogError(reqData, msg, msg2)
}

func LogDebug(reqData dataType.UserRequest, msg, msg2 string) {
	current().LogDebug(reqData, msg, msg2)
}

// LogInvalidWhitelist reports every whitelist entry that will never match
func LogInvalidWhitelist(wl *dataType.Whitelist) int {
	invalid := wl.Invalid()
	for _, raw := range invalid {
		LogError(dataType.UserRequest{}, "INVALID_WHITELIST_ENTRY", raw)
	}
	return len(invalid)
}
