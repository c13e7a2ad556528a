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

package column

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var ErrNotSingleColumn = errors.New("query must return exactly one column")

// LoadColumn runs query against db and materializes its single result column
// as an Arrow array. The caller owns the returned array and must release it.
func LoadColumn(ctx context.Context, db *sql.DB, mem memory.Allocator, query string, args ...any) (arrow.Array, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query column: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNotSingleColumn, len(cols))
	}

	var values []any
	for rows.Next() {
		var v any
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(values), err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return BuildArray(mem, values), nil
}

type valueKind uint8

const (
	kindNull valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindString
	kindBytes
	kindMixed
)

func kindOf(v any) valueKind {
	switch v.(type) {
	case nil:
		return kindNull
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case string:
		return kindString
	case []byte:
		return kindBytes
	default:
		return kindMixed
	}
}

// BuildArray converts values into an Arrow array whose type follows the
// non-null values: integers become Int64, floats Float64, booleans Boolean,
// byte slices Binary and strings String. Columns mixing several kinds are
// stored as strings.
func BuildArray(mem memory.Allocator, values []any) arrow.Array {
	kind := kindNull
	for _, v := range values {
		k := kindOf(v)
		if k == kindNull {
			continue
		}
		if kind == kindNull {
			kind = k
		} else if kind != k {
			kind = kindMixed
			break
		}
	}

	switch kind {
	case kindNull:
		return array.MakeArrayOfNull(mem, arrow.Null, len(values))
	case kindInt:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(toInt64(v))
		}
		return b.NewArray()
	case kindFloat:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for _, v := range values {
			switch x := v.(type) {
			case nil:
				b.AppendNull()
			case float32:
				b.Append(float64(x))
			case float64:
				b.Append(x)
			}
		}
		return b.NewArray()
	case kindBool:
		b := array.NewBooleanBuilder(mem)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.(bool))
		}
		return b.NewArray()
	case kindBytes:
		b := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
		defer b.Release()
		for _, v := range values {
			if v == nil {
				b.AppendNull()
				continue
			}
			b.Append(v.([]byte))
		}
		return b.NewArray()
	default:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for _, v := range values {
			switch x := v.(type) {
			case nil:
				b.AppendNull()
			case string:
				b.Append(x)
			case []byte:
				b.Append(string(x))
			default:
				b.Append(fmt.Sprint(x))
			}
		}
		return b.NewArray()
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	}
	return 0
}
