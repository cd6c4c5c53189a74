/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carverauto/crowdpool/pkg/models"
)

// MemoryStore is an in-process Service with the same claim and live-token
// guarantees as the CNPG store. State is lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.Token
	slots  map[string]*models.ApplicationSlot
}

var _ Service = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]*models.Token),
		slots:  make(map[string]*models.ApplicationSlot),
	}
}

func (*MemoryStore) Close() error { return nil }

func (s *MemoryStore) ListTokens(_ context.Context) ([]*models.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := make([]*models.Token, 0, len(s.tokens))
	for _, tk := range s.tokens {
		tokens = append(tokens, copyToken(tk))
	}

	sortTokens(tokens)

	return tokens, nil
}

func (s *MemoryStore) GetToken(_ context.Context, tokenID string) (*models.Token, error) {
	if tokenID == "" {
		return nil, ErrTokenIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tk, ok := s.tokens[tokenID]
	if !ok {
		return nil, ErrTokenNotFound
	}

	return copyToken(tk), nil
}

func (s *MemoryStore) ListLiveTokensBySerial(_ context.Context, serial string) ([]*models.Token, error) {
	if serial == "" {
		return nil, ErrSerialRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveTokensLocked(serial), nil
}

func (s *MemoryStore) InsertToken(_ context.Context, token *models.Token) error {
	if err := validateToken(token); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[token.Token]; ok {
		return fmt.Errorf("%w: %s", ErrTokenExists, token.Token)
	}

	if token.Status.IsLive() && len(s.liveTokensLocked(token.Serial)) > 0 {
		return fmt.Errorf("%w: %s", ErrLiveTokenExists, token.Serial)
	}

	s.tokens[token.Token] = copyToken(token)

	return nil
}

func (s *MemoryStore) DeleteToken(_ context.Context, tokenID string) error {
	if tokenID == "" {
		return ErrTokenIDRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[tokenID]; !ok {
		return ErrTokenNotFound
	}

	delete(s.tokens, tokenID)

	return nil
}

// SetTokenStatus moves a stored token to a new status. The device gateway
// owns these transitions in production; this hook lets tests and dev mode
// expire tokens.
func (s *MemoryStore) SetTokenStatus(tokenID string, status models.TokenStatus) error {
	if _, err := parseTokenStatus(string(status)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tk, ok := s.tokens[tokenID]
	if !ok {
		return ErrTokenNotFound
	}

	if status.IsLive() && !tk.Status.IsLive() {
		for _, other := range s.liveTokensLocked(tk.Serial) {
			if other.Token != tokenID {
				return fmt.Errorf("%w: %s", ErrLiveTokenExists, tk.Serial)
			}
		}
	}

	tk.Status = status

	return nil
}

// ClaimAppSlot marks the lowest unused app id as used.
func (s *MemoryStore) ClaimAppSlot(_ context.Context, now time.Time) (*models.ApplicationSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var claim *models.ApplicationSlot

	for _, slot := range s.slots {
		if slot.Used {
			continue
		}

		if claim == nil || slot.AppID < claim.AppID {
			claim = slot
		}
	}

	if claim == nil {
		return nil, ErrNoAppSlots
	}

	updated := now.UTC()
	claim.Used = true
	claim.Updated = &updated

	return copySlot(claim), nil
}

func (s *MemoryStore) ListAppSlots(_ context.Context) ([]*models.ApplicationSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slots := make([]*models.ApplicationSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		slots = append(slots, copySlot(slot))
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].AppID < slots[j].AppID })

	return slots, nil
}

// SaveAppSlots adds unused slots. The whole list is rejected when any id is
// already registered.
func (s *MemoryStore) SaveAppSlots(_ context.Context, appIDs []string) error {
	if err := validateAppIDs(appIDs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range appIDs {
		if _, ok := s.slots[id]; ok {
			return fmt.Errorf("%w: %s", ErrAppSlotExists, id)
		}
	}

	for _, id := range appIDs {
		s.slots[id] = &models.ApplicationSlot{AppID: id}
	}

	return nil
}

func (s *MemoryStore) DeleteAppSlots(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots = make(map[string]*models.ApplicationSlot)

	return nil
}

func (s *MemoryStore) liveTokensLocked(serial string) []*models.Token {
	var live []*models.Token

	for _, tk := range s.tokens {
		if tk.Serial == serial && tk.Status.IsLive() {
			live = append(live, copyToken(tk))
		}
	}

	sortTokens(live)

	return live
}

func sortTokens(tokens []*models.Token) {
	sort.Slice(tokens, func(i, j int) bool {
		if !tokens[i].CreationTime.Equal(tokens[j].CreationTime) {
			return tokens[i].CreationTime.Before(tokens[j].CreationTime)
		}

		return tokens[i].Token < tokens[j].Token
	})
}

func copyToken(tk *models.Token) *models.Token {
	c := *tk
	return &c
}

func copySlot(slot *models.ApplicationSlot) *models.ApplicationSlot {
	c := *slot
	if slot.Updated != nil {
		updated := *slot.Updated
		c.Updated = &updated
	}

	return &c
}
