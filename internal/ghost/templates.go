package ghost

import "text/template"

// noticeData is the rendering context shared by all notice templates.
type noticeData struct {
	RecipientName  string
	IdentityToken  string
	Handle         string
	Evidence       []string
	RequesterName  string
	RequesterEmail string
	Date           string
}

const gdprSubject = `Erasure Request under GDPR Article 17 regarding {{.Handle}}`

const gdprBody = `Dear {{.RecipientName}} Privacy Team,

I am writing on behalf of {{.RequesterName}} to request the erasure of
personal data relating to the identity {{.IdentityToken}}, pursuant to
Article 17 of the General Data Protection Regulation ("Right to Erasure").

The following data held on your platform refers to this identity:
{{range .Evidence}}  - {{.}}
{{end}}
Under Article 17(1) GDPR you are obliged to erase this personal data
without undue delay. Please confirm the erasure in writing to
{{.RequesterEmail}} within one month of receipt, as required by
Article 12(3) GDPR.

Sent on {{.Date}}.

Kind regards,
{{.RequesterName}}
{{.RequesterEmail}}`

const ccpaSubject = `Deletion Request under CCPA Section 1798.105 regarding {{.Handle}}`

const ccpaBody = `Dear {{.RecipientName}} Privacy Team,

I am writing on behalf of {{.RequesterName}} to exercise the right to
deletion under the California Consumer Privacy Act, Cal. Civ. Code
Section 1798.105, for personal information relating to the identity
{{.IdentityToken}}.

The following data held on your platform refers to this identity:
{{range .Evidence}}  - {{.}}
{{end}}
Please delete this personal information from your records and direct any
service providers to do the same, and confirm the deletion in writing to
{{.RequesterEmail}} within 45 days of receipt.

Sent on {{.Date}}.

Kind regards,
{{.RequesterName}}
{{.RequesterEmail}}`

const genericSubject = `Personal Data Removal Request regarding {{.Handle}}`

const genericBody = `Dear {{.RecipientName}} Team,

I am writing on behalf of {{.RequesterName}} to request the removal of
personal data relating to the identity {{.IdentityToken}} from your
platform.

The following data held on your platform refers to this identity:
{{range .Evidence}}  - {{.}}
{{end}}
Please remove this data and confirm the removal in writing to
{{.RequesterEmail}}.

Sent on {{.Date}}.

Kind regards,
{{.RequesterName}}
{{.RequesterEmail}}`

// noticeTemplates holds the parsed subject and body templates per legal
// basis. Parsed once at startup; a parse failure is a programming error.
var noticeTemplates = map[string]struct { //nolint: gochecknoglobals
	subject *template.Template
	body    *template.Template
}{
	"GDPR": {
		subject: template.Must(template.New("gdpr-subject").Parse(gdprSubject)),
		body:    template.Must(template.New("gdpr-body").Parse(gdprBody)),
	},
	"CCPA": {
		subject: template.Must(template.New("ccpa-subject").Parse(ccpaSubject)),
		body:    template.Must(template.New("ccpa-body").Parse(ccpaBody)),
	},
	"GENERIC": {
		subject: template.Must(template.New("generic-subject").Parse(genericSubject)),
		body:    template.Must(template.New("generic-body").Parse(genericBody)),
	},
}
