// Package email envía los correos transaccionales del portal.
// En producción se usa SMTPSender (go-mail); NoopSender sirve para
// desarrollo sin servidor de correo, loguea en lugar de enviar.
package email

// Sender es el contrato mínimo de envío.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}
