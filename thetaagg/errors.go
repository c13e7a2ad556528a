/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package thetaagg

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned when an aggregation definition cannot be built.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedMode is returned when an operation does not apply to the
	// kind of sketch a Holder wraps. It signals a programming error.
	ErrUnsupportedMode = errors.New("unsupported mode")

	// ErrFinalized is returned when an aggregator is written after its result was read.
	ErrFinalized = fmt.Errorf("%w: aggregator already finalized", ErrUnsupportedMode)

	ErrUnsupportedType = errors.New("unsupported value type")
	ErrRegionTooSmall  = errors.New("region too small")
)
