package router

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gipity/gipity-scaffold/internal/identity"
	"github.com/gipity/gipity-scaffold/internal/storage"
)

type fakeAccount struct {
	account  identity.Account
	password string
}

// fakeProvider is an in-memory identity provider.
type fakeProvider struct {
	mu       sync.Mutex
	accounts map[string]*fakeAccount
	tokens   map[string]string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{accounts: map[string]*fakeAccount{}, tokens: map[string]string{}}
}

func (p *fakeProvider) issue(email string) string {
	token := uuid.NewString()
	p.tokens[token] = email
	return token
}

// confirmLink marks the account confirmed and returns the token an email link would carry.
func (p *fakeProvider) confirmLink(email string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	p.accounts[email].account.EmailConfirmedAt = &now
	return p.issue(email)
}

func (p *fakeProvider) SignUp(_ context.Context, email, password string, metadata map[string]interface{}) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; ok {
		return nil, identity.ErrAccountExists
	}
	acct := &fakeAccount{
		account:  identity.Account{ID: uuid.New(), Email: email, UserMetadata: metadata},
		password: password,
	}
	p.accounts[email] = acct
	return snapshot(acct.account), nil
}

func (p *fakeProvider) SignIn(_ context.Context, email, password string) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.accounts[email]
	if !ok {
		return nil, identity.ErrInvalidCredentials
	}
	if !acct.account.Confirmed() {
		return nil, identity.ErrEmailNotConfirmed
	}
	if acct.password != password {
		return nil, identity.ErrInvalidCredentials
	}
	return &identity.Session{AccessToken: p.issue(email), TokenType: "bearer", Account: *snapshot(acct.account)}, nil
}

func (p *fakeProvider) GetAccount(_ context.Context, accessToken string) (*identity.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	email, ok := p.tokens[accessToken]
	if !ok {
		return nil, identity.ErrInvalidToken
	}
	return snapshot(p.accounts[email].account), nil
}

func snapshot(a identity.Account) *identity.Account {
	meta := make(map[string]interface{}, len(a.UserMetadata))
	for k, v := range a.UserMetadata {
		meta[k] = v
	}
	a.UserMetadata = meta
	return &a
}

func (p *fakeProvider) SendPasswordReset(_ context.Context, _, _ string) error {
	return nil
}

func (p *fakeProvider) AdminUpdateAccount(_ context.Context, id uuid.UUID, update identity.AccountUpdate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, acct := range p.accounts {
		if acct.account.ID != id {
			continue
		}
		if update.Password != nil {
			acct.password = *update.Password
		}
		for k, v := range update.UserMetadata {
			if v == nil {
				delete(acct.account.UserMetadata, k)
			} else {
				acct.account.UserMetadata[k] = v
			}
		}
		return nil
	}
	return identity.ErrInvalidRequest
}

type memObject struct {
	data        []byte
	contentType string
}

// memStore is an in-memory object store.
type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	deletes map[string]int
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]memObject{}, deletes: map[string]int{}}
}

func (s *memStore) Put(_ context.Context, bucket, path string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+path] = memObject{data: data, contentType: contentType}
	return nil
}

func (s *memStore) Get(_ context.Context, bucket, path string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[bucket+"/"+path]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader(obj.data)),
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (s *memStore) Delete(_ context.Context, bucket, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucket + "/" + path
	s.deletes[key]++
	delete(s.objects, key)
	return nil
}

func (s *memStore) has(bucket, path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[bucket+"/"+path]
	return ok
}

func (s *memStore) deleteCount(bucket, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes[bucket+"/"+path]
}
