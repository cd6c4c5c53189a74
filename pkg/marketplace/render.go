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

package marketplace

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	maxAssignmentsPerToken = 1

	htmlQuestionOpen = `<?xml version="1.0"?>
<HTMLQuestion xmlns="http://mechanicalturk.amazonaws.com/AWSMechanicalTurkDataSchemas/2011-11-11/HTMLQuestion.xsd">
<HTMLContent><![CDATA[
`
	htmlQuestionClose = `
]]></HTMLContent>
<FrameHeight>0</FrameHeight>
</HTMLQuestion>`
)

//go:embed templates/task.html
var templatesFS embed.FS

// Renderer turns a token into a marketplace-neutral task description.
type Renderer struct {
	hit        models.HITConfig
	accounts   models.HITAccounts
	screenshot string
	authURL    string
	production bool
	tmpl       *template.Template
}

type taskView struct {
	Title        string
	TaskMinutes  string
	AppID        string
	Token        string
	AccessURL    string
	Screenshot   string
	ContactEmail string
	Logins       []models.AccountLogin
}

// NewRenderer builds a renderer. cfg is expected to have passed Validate.
func NewRenderer(cfg *models.MarketplaceConfig, authURL string) (*Renderer, error) {
	if cfg == nil {
		return nil, ErrConfigMissing
	}

	if authURL == "" {
		return nil, ErrAuthURLRequired
	}

	tmpl, err := template.ParseFS(templatesFS, "templates/task.html")
	if err != nil {
		return nil, fmt.Errorf("parse task template: %w", err)
	}

	return &Renderer{
		hit:        cfg.HIT,
		accounts:   cfg.Accounts,
		screenshot: cfg.TaskScreenshot,
		authURL:    strings.TrimRight(authURL, "/"),
		production: cfg.Production,
		tmpl:       tmpl,
	}, nil
}

// Render builds the task for one token. Each missing input is reported with
// its own error.
func (r *Renderer) Render(token string, taskMinutes float64, appID string) (*models.TaskConfig, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}

	if taskMinutes <= 0 || math.IsNaN(taskMinutes) || math.IsInf(taskMinutes, 0) {
		return nil, ErrTaskMinutesRequired
	}

	if appID == "" {
		return nil, ErrAppIDRequired
	}

	minutes := formatMinutes(taskMinutes)
	title := strings.ReplaceAll(r.hit.Title, "%s", minutes)
	accessURL := r.AccessURL(token)

	var body bytes.Buffer

	if err := r.tmpl.Execute(&body, taskView{
		Title:        title,
		TaskMinutes:  minutes,
		AppID:        appID,
		Token:        token,
		AccessURL:    accessURL,
		Screenshot:   r.screenshot,
		ContactEmail: r.accounts.ContactEmail,
		Logins:       r.accounts.Logins,
	}); err != nil {
		return nil, fmt.Errorf("render task body: %w", err)
	}

	amount := math.Round(taskMinutes*r.hit.RewardDollarsPerMinute*100) / 100

	qual := r.hit.ProductionQualification
	if !r.production {
		qual = r.hit.SandboxQualification
	}

	return &models.TaskConfig{
		Title:                       title,
		Description:                 r.hit.Description,
		Keywords:                    r.hit.Keywords,
		Question:                    htmlQuestionOpen + body.String() + htmlQuestionClose,
		AccessURL:                   accessURL,
		Token:                       token,
		MaxAssignments:              maxAssignmentsPerToken,
		LifetimeInSeconds:           r.hit.LifetimeInSeconds,
		AssignmentDurationInSeconds: r.hit.AssignmentDurationInSeconds,
		AutoApprovalDelayInSeconds:  r.hit.AutoApprovalDelayInSeconds,
		Qualification:               qual,
		Reward: models.Reward{
			Amount:         amount,
			CurrencyCode:   r.hit.CurrencyCode,
			FormattedPrice: r.hit.CurrencyPrefix + strconv.FormatFloat(amount, 'f', 2, 64),
		},
		Sandbox: !r.production,
	}, nil
}

// AccessURL is the link a worker follows to claim the device bound to token.
func (r *Renderer) AccessURL(token string) string {
	return r.authURL + "/auth/token/" + token
}

func formatMinutes(m float64) string {
	return strconv.FormatFloat(m, 'f', -1, 64)
}
