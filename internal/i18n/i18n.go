package i18n

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/shirkavand/imperator/internal/infra"
	"github.com/shirkavand/imperator/resources"
)

var state = struct {
	sync.Mutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func GetLanguagesList() []string {
	return []string{"en", "fa"}
}

func load(lang string) {
	data, err := resources.FS.ReadFile(infra.GetResourcesPath("i18n", fmt.Sprintf("%s.yml", lang)))
	if err != nil {
		log.WithError(err).Errorln("cant load i18n")
		return
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(data, &translations); err != nil {
		log.WithError(err).Errorln("cant unmarshal i18n")
		return
	}
	state.translations[lang] = translations
	state.loaded[lang] = true
}

// Get translates key into lang, falling back to the key itself. English is
// the key language.
func Get(key, lang string) string {
	if lang == "en" || lang == "" {
		return key
	}
	state.Lock()
	defer state.Unlock()
	if !state.loaded[lang] {
		load(lang)
	}
	if res, ok := state.translations[lang][key]; ok {
		return res
	}
	log.Tracef("no translation for key %q", key)
	return key
}
