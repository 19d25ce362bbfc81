// Package validation contiene validaciones sintácticas de entrada.
package validation

import "regexp"

// Reglas de una clave de permiso:
//   - minúsculas, empieza y termina en [a-z0-9]
//   - en el medio admite [a-z0-9._-]
//   - largo 1..64
//
// Válidas: admin.access, payments.view, pos.manage
// Inválidas: BAD, .leader, trailer., "con espacios", ""
var permKeyRe = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9_\.-]{0,62}[a-z0-9])?$`)

// ValidPermissionKey indica si la clave cumple el patrón.
func ValidPermissionKey(key string) bool {
	return permKeyRe.MatchString(key)
}

// FilterPermissionKeys descarta en silencio las claves malformadas,
// preservando el orden. El filtro semántico (pertenencia al catálogo)
// ocurre después, en el store.
func FilterPermissionKeys(keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if ValidPermissionKey(k) {
			out = append(out, k)
		}
	}
	return out
}
