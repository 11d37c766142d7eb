package person_models

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/models/shared_models"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters
const (
	Memory      = 64 * 1024
	Iterations  = 3
	Parallelism = 4
	SaltLength  = 16
	KeyLength   = 64
)

// Role distinguishes motorists from parking operators on a single person record.
type Role string

const (
	RoleMotorist Role = "motorist"
	RoleOperator Role = "operator"
)

func (r Role) Valid() bool {
	return r == RoleMotorist || r == RoleOperator
}

var validIDTypes = map[string]bool{"nida": true, "kura": true, "leseni": true, "pasipoti": true}

var (
	ErrPersonNotFound      = errors.New("person not found")
	ErrPhoneTaken          = errors.New("phone number already in use")
	ErrIDNumberTaken       = errors.New("id number already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrWrongRole           = errors.New("account does not have the required role")
	ErrInvalidIDType       = errors.New("invalid id type")
	ErrCompanyNameRequired = errors.New("company name is required")
)

// MotoristProfile holds motorist-only attributes.
type MotoristProfile struct {
	IDType   *string `json:"id_type"`
	IDNumber *string `json:"id_number"`
}

// OperatorProfile holds operator-only attributes.
type OperatorProfile struct {
	CompanyName       string `json:"company_name"`
	BusinessTelephone string `json:"business_telephone"`
	BusinessEmail     string `json:"business_email"`
	Address           string `json:"address"`
	City              string `json:"city"`
}

// Person is a registered account. Exactly one of Motorist or Operator is set,
// matching Role.
type Person struct {
	ID              uuid.UUID        `json:"id"`
	PhoneNumber     string           `json:"phone_number"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	PasswordHash    string           `json:"-"`
	Role            Role             `json:"role"`
	IsPhoneVerified bool             `json:"is_phone_verified"`
	TokenVersion    int              `json:"-"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Motorist        *MotoristProfile `json:"-"`
	Operator        *OperatorProfile `json:"-"`
}

// ExtraData returns the role specific payload for profile responses.
func (p *Person) ExtraData() map[string]interface{} {
	switch {
	case p.Motorist != nil:
		return map[string]interface{}{
			"id_type":   p.Motorist.IDType,
			"id_number": p.Motorist.IDNumber,
		}
	case p.Operator != nil:
		return map[string]interface{}{
			"company_name":       p.Operator.CompanyName,
			"business_telephone": p.Operator.BusinessTelephone,
			"business_email":     p.Operator.BusinessEmail,
			"address":            p.Operator.Address,
			"city":               p.Operator.City,
		}
	}
	return map[string]interface{}{}
}

func generateSalt(size int) ([]byte, error) {
	salt := make([]byte, size)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt, err := generateSalt(SaltLength)
	if err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), KeyLength)

	return fmt.Sprintf("%s$%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword verifies a password against a stored hash.
func VerifyPassword(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 2 {
		logger.ErrorLogger.Error("invalid stored hash format")
		return false, errors.New("invalid stored hash format")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[0])
	if err != nil {
		return false, err
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[1])
	if err != nil {
		return false, err
	}

	computedHash := argon2.IDKey([]byte(password), salt, Iterations, Memory, uint8(Parallelism), uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1, nil
}

// NewMotorist builds an unsaved motorist record.
func NewMotorist(phoneNumber, firstName, lastName, password string) (*Person, error) {
	return newPerson(phoneNumber, firstName, lastName, password, RoleMotorist)
}

// NewOperator builds an unsaved operator record.
func NewOperator(phoneNumber, firstName, lastName, password string, profile OperatorProfile) (*Person, error) {
	if strings.TrimSpace(profile.CompanyName) == "" {
		return nil, ErrCompanyNameRequired
	}
	p, err := newPerson(phoneNumber, firstName, lastName, password, RoleOperator)
	if err != nil {
		return nil, err
	}
	p.Operator = &profile
	return p, nil
}

func newPerson(phoneNumber, firstName, lastName, password string, role Role) (*Person, error) {
	id, err := shared_models.GenerateUUIDv7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUIDv7: %w", err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	now := time.Now()
	p := &Person{
		ID:           id,
		PhoneNumber:  phoneNumber,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if role == RoleMotorist {
		p.Motorist = &MotoristProfile{}
	}
	return p, nil
}

// CreatePerson inserts the person and its role profile. Run it inside a
// transaction so both rows land together.
func CreatePerson(ctx context.Context, q db.Querier, p *Person) error {
	logger.InfoLogger.Infof("Creating %s account %s", p.Role, p.ID)

	_, err := q.Exec(ctx, `
		INSERT INTO persons (id, phone_number, first_name, last_name, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.PhoneNumber, p.FirstName, p.LastName, p.PasswordHash, string(p.Role), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPhoneTaken
		}
		logger.ErrorLogger.Errorf("Failed to insert person %s: %v", p.ID, err)
		return fmt.Errorf("failed to create person: %w", err)
	}

	switch p.Role {
	case RoleMotorist:
		if p.Motorist == nil {
			p.Motorist = &MotoristProfile{}
		}
		_, err = q.Exec(ctx, `INSERT INTO motorist_profiles (person_id, id_type, id_number) VALUES ($1, $2, $3)`,
			p.ID, p.Motorist.IDType, p.Motorist.IDNumber)
	case RoleOperator:
		o := p.Operator
		_, err = q.Exec(ctx, `
			INSERT INTO operator_profiles (person_id, company_name, business_telephone, business_email, address, city)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, o.CompanyName, o.BusinessTelephone, o.BusinessEmail, o.Address, o.City)
	default:
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIDNumberTaken
		}
		return fmt.Errorf("failed to create %s profile: %w", p.Role, err)
	}
	return nil
}

const personColumns = `p.id, p.phone_number, p.first_name, p.last_name, p.password_hash, p.role,
	p.is_phone_verified, p.token_version, p.created_at, p.updated_at,
	m.id_type, m.id_number,
	o.company_name, o.business_telephone, o.business_email, o.address, o.city`

const personFrom = `FROM persons p
	LEFT JOIN motorist_profiles m ON m.person_id = p.id
	LEFT JOIN operator_profiles o ON o.person_id = p.id`

func scanPerson(row pgx.Row) (*Person, error) {
	var (
		p                                       Person
		role                                    string
		idType, idNumber                        *string
		company, bizPhone, bizEmail, addr, city *string
	)
	err := row.Scan(
		&p.ID, &p.PhoneNumber, &p.FirstName, &p.LastName, &p.PasswordHash, &role,
		&p.IsPhoneVerified, &p.TokenVersion, &p.CreatedAt, &p.UpdatedAt,
		&idType, &idNumber,
		&company, &bizPhone, &bizEmail, &addr, &city,
	)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPersonNotFound
		}
		return nil, err
	}

	p.Role = Role(role)
	switch p.Role {
	case RoleMotorist:
		p.Motorist = &MotoristProfile{IDType: idType, IDNumber: idNumber}
	case RoleOperator:
		p.Operator = &OperatorProfile{
			CompanyName:       deref(company),
			BusinessTelephone: deref(bizPhone),
			BusinessEmail:     deref(bizEmail),
			Address:           deref(addr),
			City:              deref(city),
		}
	}
	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetPersonByID retrieves a person with its role profile.
func GetPersonByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Person, error) {
	p, err := scanPerson(q.QueryRow(ctx, `SELECT `+personColumns+` `+personFrom+` WHERE p.id = $1`, id))
	if err != nil && !errors.Is(err, ErrPersonNotFound) {
		logger.ErrorLogger.Errorf("failed to get person %s: %v", id, err)
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, err
}

// GetPersonByPhone retrieves a person by normalized phone number.
func GetPersonByPhone(ctx context.Context, q db.Querier, phoneNumber string) (*Person, error) {
	p, err := scanPerson(q.QueryRow(ctx, `SELECT `+personColumns+` `+personFrom+` WHERE p.phone_number = $1`, phoneNumber))
	if err != nil && !errors.Is(err, ErrPersonNotFound) {
		logger.ErrorLogger.Errorf("failed to get person by phone: %v", err)
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, err
}

// IsPhoneRegistered reports whether a phone number already has an account.
func IsPhoneRegistered(ctx context.Context, q db.Querier, phoneNumber string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM persons WHERE phone_number = $1)`, phoneNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check phone number: %w", err)
	}
	return exists, nil
}

// Authenticate checks phone and password and that the account has the given role.
func Authenticate(ctx context.Context, q db.Querier, phoneNumber, password string, role Role) (*Person, error) {
	p, err := GetPersonByPhone(ctx, q, phoneNumber)
	if err != nil {
		if errors.Is(err, ErrPersonNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	valid, err := VerifyPassword(password, p.PasswordHash)
	if err != nil || !valid {
		logger.WarnLogger.Warnf("Invalid password attempt for person %s", p.ID)
		return nil, ErrInvalidCredentials
	}
	if p.Role != role {
		return nil, ErrWrongRole
	}
	return p, nil
}

// MarkPhoneVerified flags the person's phone number as verified.
func MarkPhoneVerified(ctx context.Context, q db.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `UPDATE persons SET is_phone_verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to verify phone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPersonNotFound
	}
	return nil
}

// GetTokenVersion returns the current token version of the person.
func GetTokenVersion(ctx context.Context, q db.Querier, id uuid.UUID) (int, error) {
	var v int
	err := q.QueryRow(ctx, `SELECT token_version FROM persons WHERE id = $1`, id).Scan(&v)
	if err != nil {
		if db.IsNoRows(err) {
			return 0, ErrPersonNotFound
		}
		return 0, err
	}
	return v, nil
}

// IncrementTokenVersion invalidates every token issued so far.
func IncrementTokenVersion(ctx context.Context, q db.Querier, id uuid.UUID) error {
	_, err := q.Exec(ctx, `UPDATE persons SET token_version = token_version + 1 WHERE id = $1`, id)
	return err
}

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	IDType            *string `json:"id_type"`
	IDNumber          *string `json:"id_number"`
	CompanyName       *string `json:"company_name"`
	BusinessTelephone *string `json:"business_telephone"`
	BusinessEmail     *string `json:"business_email"`
	Address           *string `json:"address"`
	City              *string `json:"city"`
}

// UpdateProfile applies the update to the person and its role profile.
func UpdateProfile(ctx context.Context, q db.Querier, p *Person, u ProfileUpdate) error {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if _, err := q.Exec(ctx, `UPDATE persons SET first_name = $2, last_name = $3, updated_at = NOW() WHERE id = $1`,
		p.ID, p.FirstName, p.LastName); err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}

	switch p.Role {
	case RoleMotorist:
		if u.IDType != nil {
			if !validIDTypes[*u.IDType] {
				return ErrInvalidIDType
			}
			p.Motorist.IDType = u.IDType
		}
		if u.IDNumber != nil {
			p.Motorist.IDNumber = u.IDNumber
		}
		_, err := q.Exec(ctx, `UPDATE motorist_profiles SET id_type = $2, id_number = $3 WHERE person_id = $1`,
			p.ID, p.Motorist.IDType, p.Motorist.IDNumber)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrIDNumberTaken
			}
			return fmt.Errorf("failed to update motorist profile: %w", err)
		}
	case RoleOperator:
		o := p.Operator
		setIf(&o.CompanyName, u.CompanyName)
		setIf(&o.BusinessTelephone, u.BusinessTelephone)
		setIf(&o.BusinessEmail, u.BusinessEmail)
		setIf(&o.Address, u.Address)
		setIf(&o.City, u.City)
		if strings.TrimSpace(o.CompanyName) == "" {
			return ErrCompanyNameRequired
		}
		_, err := q.Exec(ctx, `
			UPDATE operator_profiles
			SET company_name = $2, business_telephone = $3, business_email = $4, address = $5, city = $6
			WHERE person_id = $1`,
			p.ID, o.CompanyName, o.BusinessTelephone, o.BusinessEmail, o.Address, o.City)
		if err != nil {
			return fmt.Errorf("failed to update operator profile: %w", err)
		}
	}
	return nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
