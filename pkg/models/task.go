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

package models

// Qualification restricts which workers may accept a published task.
type Qualification struct {
	QualificationTypeID string   `json:"qualification_type_id"`
	Comparator          string   `json:"comparator"`
	IntegerValues       []int32  `json:"integer_values,omitempty"`
	LocaleCountries     []string `json:"locale_countries,omitempty"`
}

// Reward is the payout offered for completing a task.
type Reward struct {
	Amount         float64 `json:"amount"`
	CurrencyCode   string  `json:"currency_code"`
	FormattedPrice string  `json:"formatted_price"`
}

// TaskConfig is a fully rendered paid task ready for submission to a
// marketplace.
type TaskConfig struct {
	Title                       string         `json:"title"`
	Description                 string         `json:"description"`
	Keywords                    string         `json:"keywords"`
	Question                    string         `json:"question"`
	AccessURL                   string         `json:"access_url"`
	Token                       string         `json:"token"`
	MaxAssignments              int32          `json:"max_assignments"`
	LifetimeInSeconds           int64          `json:"lifetime_in_seconds"`
	AssignmentDurationInSeconds int64          `json:"assignment_duration_in_seconds"`
	AutoApprovalDelayInSeconds  int64          `json:"auto_approval_delay_in_seconds"`
	Qualification               *Qualification `json:"qualification,omitempty"`
	Reward                      Reward         `json:"reward"`
	Sandbox                     bool           `json:"sandbox"`
}

// Environment names the marketplace the task is routed to.
func (t *TaskConfig) Environment() string {
	if t.Sandbox {
		return "sandbox"
	}

	return "production"
}
