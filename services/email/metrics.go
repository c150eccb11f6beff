package emailsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/researchnest/backend/core"
)

var emailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "researchnest",
	Subsystem: "email",
	Name:      "messages_total",
	Help:      "Emails handed to a delivery service, by service, template and result.",
}, []string{"service", "template", "result"})

func recordSent(service string, msg *core.EmailMessage, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	template := msg.TemplateName
	if template == "" {
		template = "none"
	}
	emailsSent.WithLabelValues(service, template, result).Inc()
}
