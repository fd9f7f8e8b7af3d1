package email

// templates holds the transactional mail bodies. The thank-you mail frames
// the donation differently depending on whether the donor has an active
// recurring subscription.
const templates = `
{{define "donation_thank_you"}}
<html>
<body style="font-family:system-ui,Arial,sans-serif">
<p>Dear {{if .Name}}{{.Name}}{{else}}donor{{end}},</p>
{{if .HasSubscriptions}}
<p>Thank you for your recurring donation. Your monthly support keeps our
crowdactions running, month after month.</p>
<p>You can review or cancel your recurring donation at any time from your
profile page.</p>
{{else}}
<p>Thank you for your donation. Your contribution directly supports our
crowdactions.</p>
{{end}}
<p>Warm regards,<br/>The team</p>
</body>
</html>
{{end}}
`
