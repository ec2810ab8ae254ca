package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/zayana/storefront/pkg/errors"
)

const productID = "3f1c8f3e-1111-4c3b-9a57-000000000001"

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT id, name_en, price FROM products WHERE id = \$1`).
		WithArgs(productID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name_en", "price"}).AddRow(productID, "Argan Oil", "19.999"))

	p, err := NewProductRepository(mock).GetByID(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, "Argan Oil", p.NameEN)
	assert.Equal(t, "19.999", p.Price.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM products`).WithArgs(productID).WillReturnError(pgx.ErrNoRows)

	_, err := NewProductRepository(mock).GetByID(context.Background(), productID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_GetByID_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`FROM products`).WithArgs(productID).WillReturnError(errors.New("conn reset"))

	_, err := NewProductRepository(mock).GetByID(context.Background(), productID)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	assert.Contains(t, err.Error(), "conn reset")
}
