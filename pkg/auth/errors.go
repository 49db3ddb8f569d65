// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import "errors"

// Verification errors. None of these are ever retried; each one
// prevents the bound task handler from running.
var (
	// ErrMissingCredentials is returned when no credential accompanies
	// the request.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrMalformedCredentials is returned when the credential does not
	// match the "Bearer <token>" shape.
	ErrMalformedCredentials = errors.New("malformed credentials: expected Bearer <token>")

	// ErrAuthenticationFailed is returned when the provider rejects the
	// token.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrTokenExpired is returned when the token or its context has
	// expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrAuthorizationFailed is returned when the principal lacks the
	// scope for the requested skill.
	ErrAuthorizationFailed = errors.New("authorization failed")
)

// isExpiryError reports whether a provider failure is an expiry rather
// than a general authentication failure.
func isExpiryError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}
