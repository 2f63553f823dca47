// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modules

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Default simulated work durations for the smoke steps.
const (
	UppercaseDelay = 500 * time.Millisecond
	LengthDelay    = 300 * time.Millisecond
)

// Uppercase upper-cases its input after a simulated delay.
type Uppercase struct {
	Delay time.Duration
}

// NewUppercase returns an Uppercase step with the default delay.
func NewUppercase() *Uppercase { return &Uppercase{Delay: UppercaseDelay} }

func (*Uppercase) Name() string { return "Uppercase" }

func (u *Uppercase) Execute(ctx context.Context, input string) (string, error) {
	if err := sleep(ctx, u.Delay); err != nil {
		return "", err
	}
	return strings.ToUpper(input), nil
}

// Length counts the characters of its input after a simulated delay.
type Length struct {
	Delay time.Duration
}

// NewLength returns a Length step with the default delay.
func NewLength() *Length { return &Length{Delay: LengthDelay} }

func (*Length) Name() string { return "Length" }

func (l *Length) Execute(ctx context.Context, input string) (int, error) {
	if err := sleep(ctx, l.Delay); err != nil {
		return 0, err
	}
	return utf8.RuneCountInString(input), nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
