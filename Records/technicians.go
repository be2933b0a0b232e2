package Records

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"Maintenance/Models"
	"Maintenance/Sheets"
)

// TechnicianHeader is written to an empty technician sheet.
var TechnicianHeader = []string{"TechnicianID", "Name", "PhotoURL", "Username", "Password"}

// Technicians reads the technician collection. It is never written by the app.
type Technicians struct {
	store Sheets.Store
	sheet string
}

type techColumns struct {
	id, name, photo, username, password int
}

// columns resolves the technician layout from the header. Older sheets carry
// no usable header; they use the fixed order id, name, photo, user, password.
func columns(header []string) techColumns {
	cols := techColumns{
		id:       Sheets.ColumnIndex(header, "TechnicianID", "ID", "TechID"),
		name:     Sheets.ColumnIndex(header, "Name", "TechnicianName"),
		photo:    Sheets.ColumnIndex(header, "PhotoURL", "Photo", "PhotoUrl"),
		username: Sheets.ColumnIndex(header, "Username", "User", "UserName"),
		password: Sheets.ColumnIndex(header, "Password"),
	}
	if cols.username < 0 || cols.password < 0 {
		return techColumns{id: 0, name: 1, photo: 2, username: 3, password: 4}
	}
	return cols
}

// List returns every technician row with a username.
func (t *Technicians) List(ctx context.Context) ([]Models.Technician, error) {
	snap, err := t.store.Read(ctx, t.sheet)
	if err != nil {
		return nil, err
	}
	cols := columns(snap.Header)
	out := make([]Models.Technician, 0, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		tech := Models.Technician{
			TechnicianID: strings.TrimSpace(snap.Cell(i, cols.id)),
			Name:         strings.TrimSpace(snap.Cell(i, cols.name)),
			PhotoURL:     strings.TrimSpace(snap.Cell(i, cols.photo)),
			Username:     snap.Cell(i, cols.username),
			Password:     snap.Cell(i, cols.password),
		}
		if tech.Username == "" {
			continue
		}
		out = append(out, tech)
	}
	return out, nil
}

// Names maps TechnicianID to display name.
func (t *Technicians) Names(ctx context.Context) (map[string]string, error) {
	list, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(list))
	for _, tech := range list {
		if tech.TechnicianID != "" && tech.Name != "" {
			names[tech.TechnicianID] = tech.Name
		}
	}
	return names, nil
}

// Authenticate matches username exactly and checks the password. Every
// failure returns ErrInvalidCredentials.
func (t *Technicians) Authenticate(ctx context.Context, username, password string) (Models.Technician, error) {
	list, err := t.List(ctx)
	if err != nil {
		return Models.Technician{}, err
	}
	for _, tech := range list {
		if tech.Username != username {
			continue
		}
		if checkPassword(tech, password) {
			return tech, nil
		}
		return Models.Technician{}, ErrInvalidCredentials
	}
	return Models.Technician{}, ErrInvalidCredentials
}

func isBcrypt(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

func checkPassword(tech Models.Technician, password string) bool {
	if isBcrypt(tech.Password) {
		return bcrypt.CompareHashAndPassword([]byte(tech.Password), []byte(password)) == nil
	}
	if tech.Password == "" {
		return false
	}
	log.Printf("[auth] technician %s has a plaintext password; store a bcrypt hash instead", tech.Username)
	return subtle.ConstantTimeCompare([]byte(tech.Password), []byte(password)) == 1
}
