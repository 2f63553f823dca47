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

package audit

import (
	"github.com/tombee/relay/pkg/pipeline"
)

// StatusDocument is the content of a step's status file.
type StatusDocument struct {
	Status    string `json:"status" yaml:"status"`
	ErrorType string `json:"errorType,omitempty" yaml:"errorType,omitempty"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Reason    string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// ErrorDocument describes a failure in a summary.
type ErrorDocument struct {
	Type    string `json:"type" yaml:"type"`
	Message string `json:"message" yaml:"message"`
	Reason  string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// SummaryDocument is the content of an input's _summary file.
type SummaryDocument struct {
	InputID         string         `json:"inputId" yaml:"inputId"`
	CorrelationID   string         `json:"correlationId,omitempty" yaml:"correlationId,omitempty"`
	Status          string         `json:"status" yaml:"status"`
	ModulesExecuted []string       `json:"modulesExecuted" yaml:"modulesExecuted"`
	FailedModule    *string        `json:"failedModule" yaml:"failedModule"`
	Error           *ErrorDocument `json:"error" yaml:"error"`
}

func successStatus() StatusDocument {
	return StatusDocument{Status: string(pipeline.StatusSuccess)}
}

func failureStatus(f pipeline.Failure) StatusDocument {
	return StatusDocument{
		Status:    string(pipeline.StatusFailed),
		ErrorType: f.Kind,
		Message:   f.Message,
		Reason:    f.Reason,
	}
}

func summaryDocument(s pipeline.Summary) SummaryDocument {
	doc := SummaryDocument{
		InputID:         s.InputID,
		CorrelationID:   s.CorrelationID,
		Status:          string(s.Status),
		ModulesExecuted: s.Succeeded,
	}
	if doc.ModulesExecuted == nil {
		doc.ModulesExecuted = []string{}
	}
	if s.FailedStep != "" {
		failed := s.FailedStep
		doc.FailedModule = &failed
	}
	if s.Failure != nil {
		doc.Error = &ErrorDocument{
			Type:    s.Failure.Kind,
			Message: s.Failure.Message,
			Reason:  s.Failure.Reason,
		}
	}
	return doc
}
