package consumer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"github.com/zsiskos/roadstartire/internal/domain"
)

// Mail is one rendered notification. Staff mails go to every staff address.
type Mail struct {
	ToStaff bool
	Subject string
	Body    string
}

type mailTemplate struct {
	toStaff bool
	subject *template.Template
	body    *template.Template
}

type mailData struct {
	Event    domain.OrderEvent
	Phone    string
	AdminURL string
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

func parse(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(funcs).Parse(text))
}

func customer(name, subject, body string) mailTemplate {
	return mailTemplate{subject: parse(name+".subject", subject), body: parse(name+".body", body)}
}

func staff(name, subject, body string) mailTemplate {
	t := customer(name, subject, body)
	t.toStaff = true
	return t
}

const orderLines = `Order #{{.Event.CartID}}
{{range .Event.Lines}}
{{.Quantity}} x {{.Brand}} {{.ProductName}} @ {{money .PriceEach}} = {{money .Subtotal}}{{end}}

Subtotal: {{money .Event.Pricing.Subtotal}}
Discount: {{money .Event.Pricing.Discount}}
Tax:      {{money .Event.Pricing.Tax}}
Total:    {{money .Event.Pricing.Total}}
`

var templates = map[domain.EventType][]mailTemplate{
	domain.EventUserSignedUp: {
		customer("signed_up",
			`Thank you for registering with Road Star Tires Wholesale.`,
			`Thank you for registering {{.Event.CompanyName}} for an account with us. `+
				`Your account will need to be verified before you can place an order, please allow us 24 business hours to do so. `+
				`If this is urgent, please contact us during business hours at {{.Phone}}.`),
		staff("signed_up.staff",
			`New signup: {{.Event.CompanyName}}`,
			`This user - {{.Event.CompanyName}}, {{.Event.Email}} - needs to be verified. `+
				`Please log in to your admin account ({{.AdminURL}}) and verify this new user.`),
	},
	domain.EventUserVerified: {
		customer("verified",
			`Your Road Star Wholesale account has been successfully verified`,
			`Hello {{.Event.FullName}} - We are glad to inform you that your Road Star Wholesale account (# {{.Event.UserID}}) has been successfully verified.
As a verified user, you now have access to our wide selection of tires on our website so feel free to start shopping!`),
	},
	domain.EventUserDeactivated: {
		customer("deactivated",
			`Your Road Star Wholesale account was recently disabled`,
			`Hello {{.Event.FullName}} - This is an email confirmation to let you know that your Road Star Wholesale account (# {{.Event.UserID}}) has been disabled.
You will be unable to log in again until an admin verifies your account again.`),
	},
	domain.EventUserProfileEdit: {
		customer("profile_edited",
			`You have edited your Road Star Tire Wholesale account.`,
			`A Road Star Tire staff member will have to re-verify your account before you can log in again to place an order. `+
				`If this is an error or urgent, please call {{.Phone}}.`),
		staff("profile_edited.staff",
			`{{.Event.CompanyName}} edited their account`,
			`This company - {{.Event.CompanyName}}, {{.Event.Email}} - edited their account and will need to be re-verified. `+
				`Please log in to your admin account ({{.AdminURL}}) and re-verify their account.`),
	},
	domain.EventOrderPlaced: {
		customer("order_placed",
			`Thank you for ordering with Road Star Tires Wholesale.`,
			`Thank you for placing your order. A Road Star Tire staff member has been notified about your order `+
				`and will be in touch regarding delivery details. If you need to contact us before then, please call {{.Phone}}.

`+orderLines),
		staff("order_placed.staff",
			`{{.Event.CompanyName}} placed Order #{{.Event.CartID}}`,
			`This company - {{.Event.CompanyName}}, {{.Event.Email}} - placed an order. `+
				`Please log in to your admin account ({{.AdminURL}}) to view the details.

`+orderLines),
	},
	domain.EventOrderCancelled: {
		customer("order_cancelled",
			`You have cancelled Order #{{.Event.CartID}}.`,
			`If this email is in error or if you wish to change your order, please call {{.Phone}}.`),
		staff("order_cancelled.staff",
			`{{.Event.CompanyName}} cancelled order #{{.Event.CartID}}`,
			`This company - {{.Event.CompanyName}}, {{.Event.Email}} - cancelled an order. `+
				`Please log in to your admin account ({{.AdminURL}}) to view the details.`),
	},
	domain.EventOrderFulfilled: {
		customer("order_fulfilled",
			`Order #{{.Event.CartID}} has been fulfilled`,
			`Hello {{.Event.FullName}} - Your Order #{{.Event.CartID}} has been fulfilled. `+
				`If you have any questions about the delivery, please call {{.Phone}}.

`+orderLines),
	},
}

// Renderer turns an event into the mails it should produce.
type Renderer struct {
	phone    string
	adminURL string
}

func NewRenderer(phone, adminURL string) *Renderer {
	return &Renderer{phone: phone, adminURL: adminURL}
}

// Render returns no mails for event types nobody is notified about.
func (r *Renderer) Render(eventType domain.EventType, ev domain.OrderEvent) ([]Mail, error) {
	data := mailData{Event: ev, Phone: r.phone, AdminURL: r.adminURL}

	var mails []Mail
	for _, t := range templates[eventType] {
		var subject, body bytes.Buffer
		if err := t.subject.Execute(&subject, data); err != nil {
			return nil, fmt.Errorf("render %s subject: %w", eventType, err)
		}
		if err := t.body.Execute(&body, data); err != nil {
			return nil, fmt.Errorf("render %s body: %w", eventType, err)
		}
		mails = append(mails, Mail{
			ToStaff: t.toStaff,
			Subject: strings.TrimSpace(subject.String()),
			Body:    body.String(),
		})
	}
	return mails, nil
}
