package pipeline

// Op 过滤谓词运算符
// 设计说明：
// 1. 闭集：约束检查只允许这几种运算符，钩子作者无法拼SQL
// 2. is/eq同义（is来自引用/布尔判断的习惯写法），not为不等，
//    in/oneof为集合包含（oneof语义上强调"恰好落在给定集合"），
//    empty/not-empty作用于子集合（如订单的items），编译为EXISTS子查询
type Op string

const (
	OpIs       Op = "is"
	OpEq       Op = "eq"
	OpNot      Op = "not"
	OpIn       Op = "in"
	OpOneOf    Op = "oneof"
	OpEmpty    Op = "empty"
	OpNotEmpty Op = "not-empty"
)

// Cond 单条过滤条件（propertyPath + operator + operand）
// Nested仅在Op为empty/not-empty时使用：对子集合行再过滤
//
// 示例（存在引用某商品的订单）：
//
//	Filter{{Path: "items", Op: OpNotEmpty, Nested: Filter{
//	    {Path: "productRef", Op: OpIs, Value: productID},
//	}}}
type Cond struct {
	Path   string // 属性路径（实体属性名，非数据库列名）
	Op     Op     // 运算符
	Value  any    // 操作数（OpIn/OpOneOf时为切片）
	Nested Filter // 子集合过滤（仅empty/not-empty）
}

// Filter 有序条件序列，各条件之间为AND关系
type Filter []Cond

// Query 通用读查询选项（Fetch用）
// 设计说明：
// 1. Props限定返回属性（空为全部）
// 2. LockShared对应SELECT ... FOR SHARE：约束检查读到的行
//    在本事务提交前不会被其他事务修改（防check-then-act竞态）
type Query struct {
	Props      []string
	Filter     Filter
	LockShared bool
}
