// SPDX-FileCopyrightText: Copyright (c) 2024-2026, GreenKube contributors.
// SPDX-License-Identifier: Apache-2.0

// Package build contains build information for the application.
package build

import "fmt"

// These values are replaced at compile time using the -X build flag:
//
//	-X github.com/greenkube/greenkube-agent/app/build.Rev=${REVISION}
//	-X github.com/greenkube/greenkube-agent/app/build.Tag=${TAG}
//	-X github.com/greenkube/greenkube-agent/app/build.Time=${BUILD_TIME}
var (
	Rev  = "latest"
	Tag  = "latest"
	Time = "latest"
)

const AppName = "greenkube-agent"

func GetVersion() string {
	return fmt.Sprintf("%s.%s.%s-%s", AppName, Rev, Tag, Time)
}
