package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Hook writes every entry to <logPath>/<date>/<fileName>.log, switching files when the date changes.
type Hook struct {
	mu       sync.Mutex
	writer   *os.File
	logPath  string
	fileName string
	fileDate string
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	timer := entry.Time.Format("2006-01-02")
	//需要切换日志文件
	if h.fileDate != timer || h.writer == nil {
		if h.writer != nil {
			h.writer.Close()
		}
		dir := fmt.Sprintf("%s/%s", h.logPath, timer)
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
		filename := fmt.Sprintf("%s/%s.log", dir, h.fileName)
		w, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0666)
		if err != nil {
			return err
		}
		h.writer = w
		h.fileDate = timer
	}
	_, err = h.writer.Write([]byte(line))
	return err
}

// LogFormatter renders "[ts] [level] message k=v ...".
type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(b, "[%s] [%s] %s", timestamp, entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// InitAppLogger builds the application logger: stderr plus a daily file under logPath.
// When logPath is empty only stderr is used.
func InitAppLogger(logPath string, fileName string, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&LogFormatter{})
	logger.SetOutput(os.Stderr)

	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}

	if logPath == "" {
		return logger
	}
	if err := os.MkdirAll(logPath, os.ModePerm); err != nil {
		logger.Errorf("create log dir %s: %s", logPath, err)
		return logger
	}
	logger.AddHook(&Hook{
		logPath:  logPath,
		fileName: fileName,
		fileDate: time.Now().Format("2006-01-02"),
	})
	return logger
}

// DiscardLogger is used by tests and tools that want no output.
func DiscardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
