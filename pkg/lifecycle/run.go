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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/crowdpool/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Service is a long running component driven by Run.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Run starts every service, blocks until SIGINT/SIGTERM, parent cancellation or
// a service failure, and then stops all services in reverse order.
func Run(ctx context.Context, log logger.Logger, services ...Service) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	for _, svc := range services {
		g.Go(func() error {
			if err := svc.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return nil
		})
	}

	<-gctx.Done()

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	var stopErrs []error

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(shutdownCtx); err != nil {
			stopErrs = append(stopErrs, err)
		}
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("service failed: %w", err)
	}

	return errors.Join(stopErrs...)
}
