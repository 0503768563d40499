package mysql

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/xiebiao/webshop/internal/domain/account"
	"github.com/xiebiao/webshop/internal/domain/order"
	"github.com/xiebiao/webshop/internal/domain/product"
	"github.com/xiebiao/webshop/internal/pipeline"
)

// =============================================================================
// 属性路径 → 物理列 映射
// =============================================================================

// 教学要点：钩子用实体属性名写过滤条件（"email"、"accountRef"），
// 列名是持久层的私事。映射表是闭集——表里没有的路径直接报错，
// 不存在"拼进SQL"的通道
var accountColumns = map[string]string{
	"id":        "id",
	"email":     "email",
	"firstName": "first_name",
	"lastName":  "last_name",
}

var productColumns = map[string]string{
	"id":        "id",
	"name":      "name",
	"price":     "price",
	"available": "is_available",
}

var orderColumns = map[string]string{
	"id":                   "id",
	"accountRef":           "account_id",
	"placedOn":             "placed_on",
	"status":               "status",
	"paymentTransactionId": "payment_tx_id",
}

// 订单行项目（嵌套过滤用，列带表前缀）
var orderItemColumns = map[string]string{
	"productRef": "order_items.product_id",
	"quantity":   "order_items.quantity",
}

// refTargets 引用属性指向的实体类型（引用值→主键换算用）
var refTargets = map[string]string{
	"accountRef": account.EntityType,
	"productRef": product.EntityType,
}

func columnsFor(entity string) (map[string]string, error) {
	switch entity {
	case account.EntityType:
		return accountColumns, nil
	case product.EntityType:
		return productColumns, nil
	case order.EntityType:
		return orderColumns, nil
	default:
		return nil, fmt.Errorf("未知的实体类型: %s", entity)
	}
}

// condValue 规格化操作数：引用属性允许传"Product#12"或裸主键，
// 统一换算成主键值
func condValue(path string, v any) any {
	target, isRef := refTargets[path]
	if !isRef {
		return v
	}
	if s, ok := v.(string); ok {
		id, _ := pipeline.ParseRef(target, s)
		return id
	}
	return v
}

// =============================================================================
// Filter → WHERE 编译
// =============================================================================

// buildWhere 把声明式过滤条件编译为WHERE片段与参数
// 设计说明：
// 1. 纯函数，不碰数据库——可以脱离MySQL做单元测试
// 2. 所有操作数都走参数占位符，值永远不进SQL文本
// 3. empty/not-empty只对订单的items子集合有意义，
//    编译为(NOT) EXISTS子查询
func buildWhere(entity string, f pipeline.Filter) (string, []any, error) {
	cols, err := columnsFor(entity)
	if err != nil {
		return "", nil, err
	}

	var clauses []string
	var args []any

	for _, c := range f {
		switch c.Op {
		case pipeline.OpIs, pipeline.OpEq:
			col, ok := cols[c.Path]
			if !ok {
				return "", nil, fmt.Errorf("实体%s没有可过滤属性%s", entity, c.Path)
			}
			clauses = append(clauses, col+" = ?")
			args = append(args, condValue(c.Path, c.Value))

		case pipeline.OpNot:
			col, ok := cols[c.Path]
			if !ok {
				return "", nil, fmt.Errorf("实体%s没有可过滤属性%s", entity, c.Path)
			}
			clauses = append(clauses, col+" <> ?")
			args = append(args, condValue(c.Path, c.Value))

		case pipeline.OpIn, pipeline.OpOneOf:
			col, ok := cols[c.Path]
			if !ok {
				return "", nil, fmt.Errorf("实体%s没有可过滤属性%s", entity, c.Path)
			}
			vals := sliceValues(c.Value)
			if len(vals) == 0 {
				// 空集合里的成员关系恒为假
				clauses = append(clauses, "1 = 0")
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(vals)), ",")
			clauses = append(clauses, col+" IN ("+placeholders+")")
			for _, v := range vals {
				args = append(args, condValue(c.Path, v))
			}

		case pipeline.OpEmpty, pipeline.OpNotEmpty:
			if entity != order.EntityType || c.Path != "items" {
				return "", nil, fmt.Errorf("属性%s.%s不支持子集合过滤", entity, c.Path)
			}
			sub, subArgs, err := buildItemsExists(c.Nested)
			if err != nil {
				return "", nil, err
			}
			if c.Op == pipeline.OpEmpty {
				sub = "NOT " + sub
			}
			clauses = append(clauses, sub)
			args = append(args, subArgs...)

		default:
			return "", nil, fmt.Errorf("未知的过滤运算符: %s", c.Op)
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

// buildItemsExists 编译订单行项目的EXISTS子查询
func buildItemsExists(nested pipeline.Filter) (string, []any, error) {
	var clauses []string
	var args []any

	for _, c := range nested {
		col, ok := orderItemColumns[c.Path]
		if !ok {
			return "", nil, fmt.Errorf("订单行项目没有可过滤属性%s", c.Path)
		}
		switch c.Op {
		case pipeline.OpIs, pipeline.OpEq:
			clauses = append(clauses, col+" = ?")
			args = append(args, condValue(c.Path, c.Value))
		case pipeline.OpNot:
			clauses = append(clauses, col+" <> ?")
			args = append(args, condValue(c.Path, c.Value))
		default:
			return "", nil, fmt.Errorf("子集合过滤不支持运算符%s", c.Op)
		}
	}

	sql := "EXISTS (SELECT 1 FROM order_items WHERE order_items.order_id = orders.id"
	if len(clauses) > 0 {
		sql += " AND " + strings.Join(clauses, " AND ")
	}
	sql += ")"
	return sql, args, nil
}

// sliceValues 把任意切片展开为[]any（in/oneof的操作数）
func sliceValues(v any) []any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice {
		if v == nil {
			return nil
		}
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
