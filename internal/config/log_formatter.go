package config

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ImpFormatter renders entries as colored key=value pairs, one line each.
type ImpFormatter struct{}

func (f *ImpFormatter) Format(entry *log.Entry) ([]byte, error) {
	const (
		red         = 31
		green       = 32
		yellow      = 33
		blue        = 36
		gray        = 37
		lightYellow = 93
		cyan        = 96
		lightGreen  = 92
	)

	levelColor := blue
	switch entry.Level {
	case log.TraceLevel, log.DebugLevel:
		levelColor = gray
	case log.WarnLevel:
		levelColor = yellow
	case log.ErrorLevel, log.FatalLevel, log.PanicLevel:
		levelColor = red
	}

	var b strings.Builder
	paint := func(color int, s string) string {
		return fmt.Sprintf("\x1b[%dm%s\x1b[0m", color, s)
	}

	b.WriteString(paint(cyan, "level") + "=" + paint(levelColor, strings.ToUpper(entry.Level.String())[:4]))
	b.WriteString(" " + paint(cyan, "ts") + "=" + paint(lightYellow, entry.Time.Format("2006-01-02 15:04:05.000")))

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw, err := json.Marshal(entry.Data[k])
		if err != nil || len(raw) == 0 {
			continue
		}
		s := string(raw)
		valueColor := cyan
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			valueColor = green
		} else if strings.HasPrefix(s, `"`) {
			valueColor = lightYellow
		}
		b.WriteString(" " + paint(cyan, k) + "=" + paint(valueColor, s))
	}

	b.WriteString(" " + paint(cyan, "msg") + "=" + paint(lightGreen, strconv.Quote(entry.Message)))

	out := strings.NewReplacer("\r", `\r`, "\n", `\n`).Replace(b.String())
	return []byte(out + "\n"), nil
}
