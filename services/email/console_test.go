package emailsvc

import (
	"io"
	"log"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchnest/backend/core"
	logsvc "github.com/researchnest/backend/services/logger"
)

func newMock(t *testing.T) *ConsoleServiceMock {
	t.Helper()
	conf := *core.Conf
	conf.TestMode = true
	return NewConsoleServiceMock(&conf, logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), &conf))
}

func TestConsoleServiceMock_SendMessages(t *testing.T) {
	svc := newMock(t)
	to := []mail.Address{{Name: "Stu Dent", Address: "stu@test.io"}}

	svc.SendMessages(
		&core.EmailMessage{
			To:           to,
			Subject:      "Enrollment confirmed",
			TemplateName: "enrollment",
			TemplateData: struct{ Name, CourseTitle string }{"Stu Dent", "Research Methods"},
		},
		&core.EmailMessage{To: to, Subject: "Plain", BodyStr: "hello"},
		&core.EmailMessage{Subject: "No recipient", BodyStr: "hello"},
		&core.EmailMessage{To: to, Subject: "Unknown", TemplateName: "nope"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].TextContent, `You are now enrolled in "Research Methods"`)
	assert.Contains(t, sent[0].HTMLContent, "Research Methods")
	assert.Equal(t, "hello", sent[1].TextContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestConsoleService_mime(t *testing.T) {
	svc := newMock(t)
	msg := &core.EmailMessage{
		To:          []mail.Address{{Name: "A", Address: "a@test.io"}, {Address: "b@test.io"}},
		Subject:     "Hi",
		TextContent: "text body",
		HTMLContent: "<p>html body</p>",
	}

	doc, err := svc.mime(msg)
	require.NoError(t, err)
	assert.Contains(t, doc, `To: "A" <a@test.io>, <b@test.io>`+"\r\n")
	assert.Contains(t, doc, "Subject: ["+core.Conf.AppName+"] Hi\r\n")
	assert.Contains(t, doc, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, doc, "text body")
	assert.Contains(t, doc, "<p>html body</p>")

	msg.HTMLContent = ""
	doc, err = svc.mime(msg)
	require.NoError(t, err)
	assert.False(t, strings.Contains(doc, "text/html"))
}
