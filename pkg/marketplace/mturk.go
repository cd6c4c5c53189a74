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
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/mturk"
	"github.com/aws/aws-sdk-go-v2/service/mturk/types"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

const (
	productionEndpoint = "https://mturk-requester.us-east-1.amazonaws.com"
	sandboxEndpoint    = "https://mturk-requester-sandbox.us-east-1.amazonaws.com"

	// MTurk caps UniqueRequestToken at 64 characters.
	maxRequestTokenLen = 64
)

// hitCreator is the slice of the MTurk API the client uses.
type hitCreator interface {
	CreateHIT(ctx context.Context, params *mturk.CreateHITInput, optFns ...func(*mturk.Options)) (*mturk.CreateHITOutput, error)
}

// MTurkClient publishes tasks as Mechanical Turk HITs.
type MTurkClient struct {
	api        hitCreator
	production bool
	logger     logger.Logger
}

var _ Marketplace = (*MTurkClient)(nil)

// NewMTurkClient builds a client with static credentials. Requests go to the
// requester sandbox unless cfg.Production is set; cfg.Endpoint overrides both.
func NewMTurkClient(ctx context.Context, cfg *models.MarketplaceConfig, log logger.Logger) (*MTurkClient, error) {
	if cfg == nil {
		return nil, ErrConfigMissing
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = sandboxEndpoint
		if cfg.Production {
			endpoint = productionEndpoint
		}
	}

	api := mturk.NewFromConfig(awsCfg, func(o *mturk.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	if cfg.Production {
		log.Info().Str("endpoint", endpoint).Msg("production environment detected, tasks will be published to MTurk production")
	} else {
		log.Info().Str("endpoint", endpoint).Msg("tasks will be published to the MTurk sandbox")
	}

	return newMTurkClient(api, cfg.Production, log), nil
}

func newMTurkClient(api hitCreator, production bool, log logger.Logger) *MTurkClient {
	return &MTurkClient{
		api:        api,
		production: production,
		logger:     log,
	}
}

// PublishTask creates a HIT and returns its id.
func (c *MTurkClient) PublishTask(ctx context.Context, task *models.TaskConfig) (string, error) {
	if task == nil {
		return "", ErrTaskNil
	}

	out, err := c.api.CreateHIT(ctx, buildCreateHITInput(task))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateTaskFailed, err)
	}

	if out == nil || out.HIT == nil || aws.ToString(out.HIT.HITId) == "" {
		return "", ErrEmptyTaskID
	}

	hitID := aws.ToString(out.HIT.HITId)

	c.logger.Info().
		Str("hit_id", hitID).
		Str("token", task.Token).
		Str("environment", task.Environment()).
		Msg("created MTurk HIT")

	return hitID, nil
}

func buildCreateHITInput(task *models.TaskConfig) *mturk.CreateHITInput {
	input := &mturk.CreateHITInput{
		Title:                       aws.String(task.Title),
		Description:                 aws.String(task.Description),
		Question:                    aws.String(task.Question),
		Reward:                      aws.String(strconv.FormatFloat(task.Reward.Amount, 'f', 2, 64)),
		MaxAssignments:              aws.Int32(task.MaxAssignments),
		LifetimeInSeconds:           aws.Int64(task.LifetimeInSeconds),
		AssignmentDurationInSeconds: aws.Int64(task.AssignmentDurationInSeconds),
		AutoApprovalDelayInSeconds:  aws.Int64(task.AutoApprovalDelayInSeconds),
		RequesterAnnotation:         aws.String(task.Token),
	}

	if task.Keywords != "" {
		input.Keywords = aws.String(task.Keywords)
	}

	if task.Token != "" && len(task.Token) <= maxRequestTokenLen {
		input.UniqueRequestToken = aws.String(task.Token)
	}

	if q := task.Qualification; q != nil && q.QualificationTypeID != "" {
		req := types.QualificationRequirement{
			QualificationTypeId: aws.String(q.QualificationTypeID),
			Comparator:          types.Comparator(q.Comparator),
			IntegerValues:       q.IntegerValues,
		}

		for _, country := range q.LocaleCountries {
			req.LocaleValues = append(req.LocaleValues, types.Locale{Country: aws.String(country)})
		}

		input.QualificationRequirements = []types.QualificationRequirement{req}
	}

	return input
}
