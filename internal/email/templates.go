package email

import "fmt"

// OTPBodies arma el asunto y los cuerpos del correo con el código de
// verificación. El código expira rápido, el texto lo deja claro.
func OTPBodies(name, code string, minutes int) (subject, html, text string) {
	subject = "Your verification code"
	if name == "" {
		name = "member"
	}
	html = fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #222;">
    <p>Hello %s,</p>
    <p>Your one-time verification code is:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
    <p>The code expires in %d minutes. If you did not request it, you can ignore this message.</p>
  </body>
</html>`, name, code, minutes)
	text = fmt.Sprintf("Hello %s,\n\nYour one-time verification code is: %s\n\nThe code expires in %d minutes. If you did not request it, you can ignore this message.\n", name, code, minutes)
	return subject, html, text
}
