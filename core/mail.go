package core

import (
	"bytes"
	htmltmpl "html/template"
	"io/fs"
	"log"
	"net/mail"
	"path"
	"strings"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	appfs "github.com/researchnest/backend/fs"
)

// Email templates are pairs of name.txt & name.gohtml, each rendered inside the _base layout of its kind.
const emailTemplatesDir = "templates/email"

var (
	emailTemplates     map[string]emailTemplate
	emailTemplatesOnce sync.Once
)

type (
	emailTemplate struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // plain text content, sent instead of a template

		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	// TemplateContext is the value every email template executes against.
	TemplateContext struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages without waiting for delivery; failures are logged.
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills the contents of m from its template.
func (m *EmailMessage) Render() error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}

	emailTemplatesOnce.Do(func() { emailTemplates = loadEmailTemplates(nil) })
	tmpl, ok := emailTemplates[m.TemplateName]
	if !ok {
		return errors.Errorf("unknown email template %q", m.TemplateName)
	}
	tctx := TemplateContext{AppName: Conf.AppName, FrontendBaseURL: Conf.FrontendBaseURL, Data: m.TemplateData}

	var buf bytes.Buffer
	if tmpl.text != nil {
		if err := tmpl.text.Execute(&buf, tctx); err != nil {
			return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
		}
		m.TextContent = buf.String()
	}
	if tmpl.html != nil {
		buf.Reset()
		if err := tmpl.html.Execute(&buf, tctx); err != nil {
			return errors.Wrapf(err, "rendering %s.gohtml", m.TemplateName)
		}
		m.HTMLContent = buf.String()
	}
	return nil
}

// Sendable reports whether m has both recipients and content.
func (m *EmailMessage) Sendable() bool {
	return len(m.To) > 0 && (m.TextContent != "" || m.HTMLContent != "")
}

// ParseEmailTemplates parses the embedded email templates, reporting failures to logger.
// Without it, templates are parsed on the first Render.
func ParseEmailTemplates(logger Logger) {
	emailTemplatesOnce.Do(func() { emailTemplates = loadEmailTemplates(logger) })
}

// loadEmailTemplates skips the templates that fail to parse.
func loadEmailTemplates(logger Logger) map[string]emailTemplate {
	tmpls := make(map[string]emailTemplate)
	report := func(err error) {
		err = errors.Wrap(err, "parsing email templates")
		if logger != nil {
			logger.Error(err.Error(), err)
		} else {
			log.Print(err)
		}
	}

	paths, err := fs.Glob(appfs.FS, path.Join(emailTemplatesDir, "*"))
	if err != nil {
		report(err)
		return tmpls
	}

	// missing keys are bugs, surface them outside production
	strict := Conf.Debug || Conf.TestMode
	for _, p := range paths {
		fname := path.Base(p)
		if strings.HasPrefix(fname, "_") {
			continue
		}
		ext := path.Ext(fname)
		name := strings.TrimSuffix(fname, ext)
		layout := path.Join(emailTemplatesDir, "_base"+ext)
		entry := tmpls[name]

		switch ext {
		case ".txt":
			t, err := texttmpl.ParseFS(appfs.FS, layout, p)
			if err != nil {
				report(err)
				continue
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			entry.text = t
		case ".gohtml":
			t, err := htmltmpl.ParseFS(appfs.FS, layout, p)
			if err != nil {
				report(err)
				continue
			}
			if strict {
				t = t.Option("missingkey=error")
			}
			entry.html = t
		default:
			continue
		}
		tmpls[name] = entry
	}
	return tmpls
}
