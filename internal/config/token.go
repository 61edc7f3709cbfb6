/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "textbehind"
	keyringToken   = "segment_token"
)

// EnvSegmentToken supplies the token without touching the keyring, for CI.
const EnvSegmentToken = "TBI_SEGMENT_TOKEN"

// TokenStore is the subset of the OS keyring used here.
type TokenStore interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
	Delete(service, user string) error
}

type osKeyring struct{}

func (osKeyring) Get(s, u string) (string, error) { return keyring.Get(s, u) }
func (osKeyring) Set(s, u, v string) error        { return keyring.Set(s, u, v) }
func (osKeyring) Delete(s, u string) error        { return keyring.Delete(s, u) }

var tokenStore TokenStore = osKeyring{}

// Token returns the segmentation API token. The environment wins over the
// keyring; a missing entry is not an error.
func Token() (string, error) {
	if v := getenvTrim(EnvSegmentToken); v != "" {
		return v, nil
	}
	tok, err := tokenStore.Get(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read token from keyring: %w", err)
	}
	return tok, nil
}

// SetToken stores the token in the OS keyring.
func SetToken(tok string) error {
	if tok == "" {
		return errors.New("empty token")
	}
	if err := tokenStore.Set(keyringService, keyringToken, tok); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

// ClearToken removes the stored token. Clearing an absent token succeeds.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}
