package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/payview/server/internal/model"
)

// ErrPayoutAccountSet is returned when a profile's Stripe account reference
// would be reassigned. The reference is set at most once.
var ErrPayoutAccountSet = errors.New("payout account already set")

type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var fullName, avatarURL, stripeAccountID sql.NullString
	var isCreator, onboardingComplete int
	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Email, &p.Username, &fullName, &avatarURL,
		&isCreator, &stripeAccountID, &onboardingComplete,
		&p.TotalEarningsCents, &p.TotalSalesCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if fullName.Valid {
		p.FullName = &fullName.String
	}
	if avatarURL.Valid {
		p.AvatarURL = &avatarURL.String
	}
	if stripeAccountID.Valid {
		p.StripeAccountID = &stripeAccountID.String
	}
	p.IsCreator = isCreator != 0
	p.StripeOnboardingComplete = onboardingComplete != 0
	return &p, nil
}

const profileCols = `id, user_id, email, username, full_name, avatar_url, is_creator, stripe_account_id, stripe_onboarding_complete, total_earnings_cents, total_sales_count, created_at, updated_at`

// GetOrCreate returns the profile for the given identity, creating it lazily
// on first authenticated access. The username is derived from the email local
// part; on collision a random suffix is appended.
func (s *ProfileStore) GetOrCreate(userID, email string) (*model.Profile, error) {
	p, err := s.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}

	username := email
	if i := strings.IndexByte(email, '@'); i > 0 {
		username = email[:i]
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO profiles (id, user_id, email, username) VALUES (?, ?, ?, ?)`,
		id, userID, email, username,
	)
	if err != nil && isUniqueViolation(err) {
		username = fmt.Sprintf("%s-%s", username, id[:8])
		_, err = s.db.Exec(
			`INSERT INTO profiles (id, user_id, email, username) VALUES (?, ?, ?, ?)`,
			id, userID, email, username,
		)
	}
	if err != nil {
		// A concurrent first request may have created the row between the
		// lookup and the insert.
		if isUniqueViolation(err) {
			return s.GetByUserID(userID)
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *ProfileStore) GetByID(id string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByUserID(userID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE user_id = ?`, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by user id: %w", err)
	}
	return p, nil
}

func (s *ProfileStore) GetByStripeAccountID(accountID string) (*model.Profile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM profiles WHERE stripe_account_id = ?`, accountID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile by stripe account id: %w", err)
	}
	return p, nil
}

// SetStripeAccountID records the connected payout account. The guard on the
// update keeps the reference write-once even under concurrent onboarding
// requests.
func (s *ProfileStore) SetStripeAccountID(id, accountID string) error {
	res, err := s.db.Exec(
		`UPDATE profiles SET stripe_account_id = ?, is_creator = 1 WHERE id = ? AND stripe_account_id IS NULL`,
		accountID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe account id: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stripe account id: %w", err)
	}
	if n == 0 {
		return ErrPayoutAccountSet
	}
	return nil
}

// SetOnboardingComplete overwrites the onboarding flag for the profile owning
// the given connected account. Derived state, always replaced wholesale.
func (s *ProfileStore) SetOnboardingComplete(stripeAccountID string, complete bool) error {
	var v int
	if complete {
		v = 1
	}
	_, err := s.db.Exec(
		`UPDATE profiles SET stripe_onboarding_complete = ? WHERE stripe_account_id = ?`,
		v, stripeAccountID,
	)
	if err != nil {
		return fmt.Errorf("set onboarding complete: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
