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
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/mturk"
	"github.com/aws/aws-sdk-go-v2/service/mturk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/crowdpool/pkg/logger"
	"github.com/carverauto/crowdpool/pkg/models"
)

var errThrottled = errors.New("ThrottlingException: rate exceeded")

type fakeHITCreator struct {
	input *mturk.CreateHITInput
	out   *mturk.CreateHITOutput
	err   error
}

func (f *fakeHITCreator) CreateHIT(_ context.Context, params *mturk.CreateHITInput, _ ...func(*mturk.Options)) (*mturk.CreateHITOutput, error) {
	f.input = params
	return f.out, f.err
}

func renderedTask(t *testing.T) *models.TaskConfig {
	t.Helper()

	r, err := NewRenderer(testMarketplaceConfig(true), "https://stf.example.com")
	require.NoError(t, err)

	task, err := r.Render("0b9d2a4e-6f7c-4f5e-9c1d-2a3b4c5d6e7f", 5, "com.example.app")
	require.NoError(t, err)

	return task
}

func TestPublishTask(t *testing.T) {
	api := &fakeHITCreator{out: &mturk.CreateHITOutput{HIT: &types.HIT{HITId: aws.String("3XYZHIT")}}}
	c := newMTurkClient(api, true, logger.NewTestLogger())

	task := renderedTask(t)

	id, err := c.PublishTask(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "3XYZHIT", id)

	in := api.input
	require.NotNil(t, in)
	assert.Equal(t, task.Title, aws.ToString(in.Title))
	assert.Equal(t, "0.50", aws.ToString(in.Reward))
	assert.Equal(t, int32(1), aws.ToInt32(in.MaxAssignments))
	assert.Equal(t, task.Token, aws.ToString(in.UniqueRequestToken))
	assert.Equal(t, task.Question, aws.ToString(in.Question))
	require.Len(t, in.QualificationRequirements, 1)
	assert.Equal(t, "PROD-QUAL", aws.ToString(in.QualificationRequirements[0].QualificationTypeId))
	assert.Equal(t, types.ComparatorGreaterThan, in.QualificationRequirements[0].Comparator)
	assert.Equal(t, []int32{95}, in.QualificationRequirements[0].IntegerValues)
}

func TestPublishTaskFailure(t *testing.T) {
	c := newMTurkClient(&fakeHITCreator{err: errThrottled}, false, logger.NewTestLogger())

	_, err := c.PublishTask(context.Background(), renderedTask(t))
	require.ErrorIs(t, err, ErrCreateTaskFailed)
	require.ErrorIs(t, err, errThrottled)
}

func TestPublishTaskEmptyHITID(t *testing.T) {
	c := newMTurkClient(&fakeHITCreator{out: &mturk.CreateHITOutput{}}, false, logger.NewTestLogger())

	_, err := c.PublishTask(context.Background(), renderedTask(t))
	require.ErrorIs(t, err, ErrEmptyTaskID)

	_, err = c.PublishTask(context.Background(), nil)
	require.ErrorIs(t, err, ErrTaskNil)
}

func TestBuildCreateHITInputLocales(t *testing.T) {
	task := &models.TaskConfig{
		Title:  "t",
		Token:  "tok",
		Reward: models.Reward{Amount: 1.2},
		Qualification: &models.Qualification{
			QualificationTypeID: "00000000000000000071",
			Comparator:          "In",
			LocaleCountries:     []string{"US", "CA"},
		},
	}

	in := buildCreateHITInput(task)
	assert.Equal(t, "1.20", aws.ToString(in.Reward))
	assert.Nil(t, in.Keywords)
	require.Len(t, in.QualificationRequirements, 1)
	require.Len(t, in.QualificationRequirements[0].LocaleValues, 2)
	assert.Equal(t, "CA", aws.ToString(in.QualificationRequirements[0].LocaleValues[1].Country))
}
