package i18n

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/yield-vault/internal/config"
	"golang.org/x/text/language"
)

//go:embed messages/*.toml
var embeddedMessages embed.FS

type Data map[string]interface{}

// Service translates message ids into the best matching supported language.
type Service struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// New builds the bundle from the embedded messages. Files in
// config.I18n.BundleDirAbs are loaded afterwards and override embedded messages.
func New(config config.Server) (*Service, error) {
	bundle := i18n.NewBundle(config.I18n.DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := embeddedMessages.ReadDir("messages")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read embedded messages")
	}

	for _, entry := range entries {
		path := "messages/" + entry.Name()
		buf, err := embeddedMessages.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read embedded message file %s", path)
		}
		if _, err := bundle.ParseMessageFileBytes(buf, entry.Name()); err != nil {
			return nil, errors.Wrapf(err, "failed to parse embedded message file %s", path)
		}
	}

	if config.I18n.BundleDirAbs != "" {
		files, err := os.ReadDir(config.I18n.BundleDirAbs)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read i18n bundle directory %s", config.I18n.BundleDirAbs)
		}

		for _, file := range files {
			if file.IsDir() || filepath.Ext(file.Name()) != ".toml" {
				continue
			}
			if _, err := bundle.LoadMessageFile(filepath.Join(config.I18n.BundleDirAbs, file.Name())); err != nil {
				return nil, errors.Wrapf(err, "failed to load message file %s", file.Name())
			}
		}
	}

	return &Service{
		bundle:  bundle,
		matcher: language.NewMatcher(bundle.LanguageTags()),
	}, nil
}

// Translate returns the message for msgID in lang. If the message cannot be
// found the msgID itself is returned.
func (s *Service) Translate(lang language.Tag, msgID string, data ...Data) string {
	localizer := i18n.NewLocalizer(s.bundle, lang.String())

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: templateData(data),
	})
	if err != nil {
		log.Debug().Err(err).Str("id", msgID).Str("lang", lang.String()).Msg("Failed to translate message")
		return msgID
	}

	return msg
}

// TranslatePlural is like Translate but selects the plural form for count.
func (s *Service) TranslatePlural(lang language.Tag, msgID string, count interface{}, data ...Data) string {
	localizer := i18n.NewLocalizer(s.bundle, lang.String())

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: templateData(data),
	})
	if err != nil {
		log.Debug().Err(err).Str("id", msgID).Str("lang", lang.String()).Msg("Failed to translate plural message")
		return msgID
	}

	return msg
}

// ParseAcceptLanguage matches an Accept-Language header against the
// supported languages.
func (s *Service) ParseAcceptLanguage(header string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return s.defaultTag()
	}

	return s.match(tags...)
}

// ParseLang matches a single language string, e.g. "de-AT".
func (s *Service) ParseLang(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return s.defaultTag()
	}

	return s.match(tag)
}

func (s *Service) Tags() []language.Tag {
	return s.bundle.LanguageTags()
}

func (s *Service) match(tags ...language.Tag) language.Tag {
	_, idx, _ := s.matcher.Match(tags...)
	return s.bundle.LanguageTags()[idx]
}

// first tag of the bundle is always the default language
func (s *Service) defaultTag() language.Tag {
	return s.bundle.LanguageTags()[0]
}

func templateData(data []Data) Data {
	if len(data) == 0 {
		return nil
	}
	return data[0]
}
