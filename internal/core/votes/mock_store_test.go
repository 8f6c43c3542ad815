package votes

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// mockStore implements Store for testing; WithTx runs fn against the mock itself
type mockStore struct {
	mock.Mock
}

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

func (m *mockStore) GetByVoterAndSubject(ctx context.Context, voter, subject Ref, forUpdate bool) (*Vote, error) {
	args := m.Called(ctx, voter, subject, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Vote), args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, vote *Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *mockStore) UpdateMagnitude(ctx context.Context, vote *Vote) error {
	args := m.Called(ctx, vote)
	return args.Error(0)
}

func (m *mockStore) Delete(ctx context.Context, voter, subject Ref) error {
	args := m.Called(ctx, voter, subject)
	return args.Error(0)
}

func (m *mockStore) ListByVoter(ctx context.Context, voter Ref, q ListQuery) ([]*Vote, error) {
	args := m.Called(ctx, voter, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Vote), args.Error(1)
}

func (m *mockStore) ListBySubject(ctx context.Context, subject Ref, q ListQuery) ([]*Vote, error) {
	args := m.Called(ctx, subject, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Vote), args.Error(1)
}

func (m *mockStore) Exists(ctx context.Context, voter, subject Ref, sign Sign) (bool, error) {
	args := m.Called(ctx, voter, subject, sign)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) Count(ctx context.Context, subject Ref, sign Sign) (int64, error) {
	args := m.Called(ctx, subject, sign)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) Sum(ctx context.Context, subject Ref, sign Sign) (int64, error) {
	args := m.Called(ctx, subject, sign)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) CountBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign Sign) (map[string]int64, error) {
	args := m.Called(ctx, subjectType, subjectIDs, sign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockStore) SumBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign Sign) (map[string]int64, error) {
	args := m.Called(ctx, subjectType, subjectIDs, sign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *mockStore) VotedSubjectIDs(ctx context.Context, voter Ref, subjectType string, subjectIDs []string, sign Sign) (map[string]bool, error) {
	args := m.Called(ctx, voter, subjectType, subjectIDs, sign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]bool), args.Error(1)
}
