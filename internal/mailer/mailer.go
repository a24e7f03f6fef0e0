package mailer

import "context"

type Service interface {
	Send(ctx context.Context, e Email) error
}

type Email struct {
	FromName string
	From     string

	To      []string
	ReplyTo string

	Subject string

	TextBody string
	HTMLBody string
}
