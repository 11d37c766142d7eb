package person_models

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)

	ok, err := VerifyPassword("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "not-a-hash")
	assert.Error(t, err)
}

func TestNewOperatorRequiresCompany(t *testing.T) {
	_, err := NewOperator("255712345678", "Asha", "", "pw", OperatorProfile{})
	assert.ErrorIs(t, err, ErrCompanyNameRequired)

	op, err := NewOperator("255712345678", "Asha", "", "pw", OperatorProfile{CompanyName: "Egesha Ltd"})
	require.NoError(t, err)
	assert.Equal(t, RoleOperator, op.Role)
	assert.Nil(t, op.Motorist)
	assert.Equal(t, "Egesha Ltd", op.ExtraData()["company_name"])
}

func TestNewMotoristHasProfile(t *testing.T) {
	m, err := NewMotorist("255712345678", "Juma", "Ali", "pw")
	require.NoError(t, err)
	assert.Equal(t, RoleMotorist, m.Role)
	require.NotNil(t, m.Motorist)
	assert.Contains(t, m.ExtraData(), "id_type")
	assert.False(t, m.IsPhoneVerified)
}

func TestCreatePersonWritesProfile(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	m, err := NewMotorist("255712345678", "Juma", "Ali", "pw")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO persons").
		WithArgs(m.ID, m.PhoneNumber, m.FirstName, m.LastName, m.PasswordHash, "motorist", m.CreatedAt, m.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO motorist_profiles").
		WithArgs(m.ID, m.Motorist.IDType, m.Motorist.IDNumber).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, CreatePerson(context.Background(), mock, m))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleMotorist.Valid())
	assert.True(t, RoleOperator.Valid())
	assert.False(t, Role("admin").Valid())
}
