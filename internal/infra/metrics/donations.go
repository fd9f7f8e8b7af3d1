package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		checkoutsTotal,
		webhooksTotal,
		emailsTotal,
	)
}

var (
	checkoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_checkouts_total",
			Help: "Checkout initializations by flow (card/sepa/ideal) and outcome.",
		},
		[]string{"flow", "status"},
	)

	webhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_webhooks_total",
			Help: "Inbound gateway webhooks by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	emailsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donation_emails_total",
			Help: "Templated mails by template and outcome.",
		},
		[]string{"template", "outcome"},
	)
)

func IncCheckout(flow, status string) {
	checkoutsTotal.WithLabelValues(norm(flow), norm(status)).Inc()
}

func IncWebhook(endpoint, outcome string) {
	webhooksTotal.WithLabelValues(norm(endpoint), norm(outcome)).Inc()
}

func IncEmail(template, outcome string) {
	emailsTotal.WithLabelValues(norm(template), norm(outcome)).Inc()
}
