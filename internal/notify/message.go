package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/fsdevblog/printahead/internal/domain"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/*.html.tmpl"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/*.txt.tmpl"))
)

// Message письмо с html и текстовой версией.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

type messageData struct {
	ShortID      string
	CustomerName string
	PickupDate   string
	PickupTime   string
	Total        int64
	PaymentLabel string
	Items        []domain.CartItem
	Files        []domain.FileDescriptor
	Notes        string
}

func newMessageData(order *domain.Order) messageData {
	name := order.CustomerName
	if name == "" {
		name = "Customer"
	}
	payment := "Cash on Pickup"
	switch order.PaymentMethod {
	case domain.PaymentMethodCredits:
		payment = "Print Credits"
	case domain.PaymentMethodCard:
		payment = "Card"
	case domain.PaymentMethodUPI:
		payment = "UPI"
	case domain.PaymentMethodCash:
	}
	return messageData{
		ShortID:      order.ShortID(),
		CustomerName: name,
		PickupDate:   order.PickupDate,
		PickupTime:   order.PickupTime,
		Total:        order.Total,
		PaymentLabel: payment,
		Items:        order.CartItems,
		Files:        order.UploadedFiles,
		Notes:        order.Notes,
	}
}

// ConfirmationMessage письмо о принятом заказе.
func ConfirmationMessage(from string, order *domain.Order) (Message, error) {
	return render(from, order, "Order Confirmed - PrintAhead #%s", "confirmation")
}

// ReadyMessage письмо о готовности заказа к выдаче.
func ReadyMessage(from string, order *domain.Order) (Message, error) {
	return render(from, order, "Your Order is Ready - PrintAhead #%s", "ready")
}

func render(from string, order *domain.Order, subject, name string) (Message, error) {
	if order.CustomerEmail == nil || *order.CustomerEmail == "" {
		return Message{}, ErrNoRecipient
	}
	data := newMessageData(order)

	var html, text bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("rendering %s html: %w", name, err)
	}
	if err := textTemplates.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return Message{}, fmt.Errorf("rendering %s text: %w", name, err)
	}
	return Message{
		From:    from,
		To:      *order.CustomerEmail,
		Subject: fmt.Sprintf(subject, data.ShortID),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
