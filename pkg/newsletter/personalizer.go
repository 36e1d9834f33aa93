package newsletter

import (
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/Abraxas-365/mailflow/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// Rendered is the recipient-specific copy of a newsletter.
type Rendered struct {
	Subject        string
	HTML           string
	Text           string
	UnsubscribeURL string
}

// UnsubscribeClaims is the payload of the signed unsubscribe token.
type UnsubscribeClaims struct {
	NewsletterID string `json:"nid"`
	TenantID     string `json:"tid"`
	jwt.RegisteredClaims
}

// Personalizer renders templates per recipient. It holds only immutable
// configuration and is safe for concurrent use.
type Personalizer struct {
	baseURL string
	secret  []byte
}

// NewPersonalizer builds a personalizer. An empty secret produces unsigned
// unsubscribe links.
func NewPersonalizer(unsubscribeBaseURL, secret string) (*Personalizer, error) {
	u, err := url.Parse(unsubscribeBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, newsletterErrors.NewWithMessage(ErrInvalidRequest, "unsubscribe base URL must be absolute").
			WithDetail("baseURL", unsubscribeBaseURL)
	}
	return &Personalizer{baseURL: unsubscribeBaseURL, secret: []byte(secret)}, nil
}

// Personalize substitutes placeholders in content and appends the HTML
// unsubscribe footer.
func (p *Personalizer) Personalize(content string, scope Scope, r Recipient) string {
	link := p.UnsubscribeURL(scope, r.ID)
	return substitute(content, r, html.EscapeString) + htmlFooter(link)
}

// Render produces the subject, HTML and text bodies for one recipient.
// Text is empty when the request carries no text template.
func (p *Personalizer) Render(req *SendRequest, r Recipient) Rendered {
	link := p.UnsubscribeURL(req.Scope(), r.ID)
	subject := substitute(req.Subject, r, nil)
	if strings.TrimSpace(subject) == "" {
		subject = req.Subject
	}
	out := Rendered{
		Subject:        subject,
		HTML:           substitute(req.Content, r, html.EscapeString) + htmlFooter(link),
		UnsubscribeURL: link,
	}
	if req.TextContent != "" {
		out.Text = substitute(req.TextContent, r, nil) + textFooter(link)
	}
	return out
}

// UnsubscribeURL builds the deterministic per-recipient unsubscribe link.
func (p *Personalizer) UnsubscribeURL(scope Scope, id kernel.RecipientID) string {
	q := url.Values{}
	q.Set("newsletterId", scope.NewsletterID.String())
	q.Set("recipientId", id.String())
	q.Set("tenantId", scope.TenantID.String())
	if token := p.sign(scope, id); token != "" {
		q.Set("token", token)
	}

	u, _ := url.Parse(p.baseURL)
	existing := u.Query()
	for k, v := range q {
		existing[k] = v
	}
	u.RawQuery = existing.Encode()
	return u.String()
}

// ParseUnsubscribeToken verifies a token issued by UnsubscribeURL.
func (p *Personalizer) ParseUnsubscribeToken(token string) (*UnsubscribeClaims, error) {
	if len(p.secret) == 0 {
		return nil, newsletterErrors.NewWithMessage(ErrInvalidRequest, "unsubscribe tokens are not enabled")
	}
	claims := &UnsubscribeClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, newsletterErrors.NewWithCause(ErrInvalidRequest, err).
			WithDetail("field", "token")
	}
	return claims, nil
}

func (p *Personalizer) sign(scope Scope, id kernel.RecipientID) string {
	if len(p.secret) == 0 {
		return ""
	}
	claims := UnsubscribeClaims{
		NewsletterID:     scope.NewsletterID.String(),
		TenantID:         scope.TenantID.String(),
		RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return ""
	}
	return signed
}

func substitute(content string, r Recipient, escape func(string) string) string {
	return placeholderPattern.ReplaceAllStringFunc(content, func(token string) string {
		var v string
		switch token[1 : len(token)-1] {
		case "firstName":
			v = r.FirstName
		case "lastName":
			v = r.LastName
		case "fullName":
			v = r.FullName()
		case "email":
			v = r.Email
		default:
			return token
		}
		if escape != nil {
			v = escape(v)
		}
		return v
	})
}

func htmlFooter(link string) string {
	return `<div style="margin-top:32px;font-size:12px;color:#888888;text-align:center">` +
		`<a href="` + html.EscapeString(link) + `">Unsubscribe</a></div>`
}

func textFooter(link string) string {
	return "\n\n--\nUnsubscribe: " + link
}
