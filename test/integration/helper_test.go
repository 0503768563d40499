package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// 教学说明：测试辅助工具
// 集成测试打的是真实HTTP端口（需要先启动服务和依赖的MySQL/Redis），
// 这个文件把重复的请求/解析/造数逻辑封装成可复用的函数

const (
	// BaseURL API基础URL
	BaseURL = "http://localhost:8080/api/v1"
	// Timeout HTTP请求超时时间
	Timeout = 10 * time.Second
)

// TestMain 服务不在线时整包跳过，避免在纯单测环境里误报失败
func TestMain(m *testing.M) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://localhost:8080/ping")
	if err != nil {
		fmt.Println("跳过集成测试：服务未启动（go run ./cmd/api后重试）")
		os.Exit(0)
	}
	resp.Body.Close()
	os.Exit(m.Run())
}

// Response 统一响应结构
// Status是HTTP状态码，由辅助函数填入（业务拒绝按状态码区分400/403/409/422）
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Status  int             `json:"-"`
}

// AccountData 账户响应数据
type AccountData struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// LoginData 登录响应数据
type LoginData struct {
	Handle      string `json:"handle"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ProductData 商品响应数据
type ProductData struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Available   bool   `json:"available"`
}

// OrderItemData 订单行项目
type OrderItemData struct {
	ProductRef string `json:"productRef"`
	Quantity   int    `json:"quantity"`
}

// OrderData 订单响应数据
// placedOn保留原始字符串，改单（PUT完整表述）时原样回传
type OrderData struct {
	ID                   uint            `json:"id"`
	AccountRef           string          `json:"accountRef"`
	PlacedOn             string          `json:"placedOn"`
	Status               string          `json:"status"`
	PaymentTransactionID string          `json:"paymentTransactionId"`
	Items                []OrderItemData `json:"items"`
}

func doJSON(t *testing.T, method, url string, data interface{}, token string) *Response {
	t.Helper()

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		require.NoError(t, err, "JSON序列化失败")
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err, "创建HTTP请求失败")

	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Do(req)
	require.NoError(t, err, "发送HTTP请求失败")
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "读取响应体失败")

	result := Response{Status: resp.StatusCode}
	if len(raw) > 0 {
		err = json.Unmarshal(raw, &result)
		require.NoError(t, err, "解析JSON响应失败: %s", string(raw))
	}

	return &result
}

// PostJSON 发送POST请求并解析JSON响应
func PostJSON(t *testing.T, url string, data interface{}, token string) *Response {
	t.Helper()
	return doJSON(t, http.MethodPost, url, data, token)
}

// PutJSON 发送PUT请求并解析JSON响应
func PutJSON(t *testing.T, url string, data interface{}, token string) *Response {
	t.Helper()
	return doJSON(t, http.MethodPut, url, data, token)
}

// GetJSON 发送GET请求并解析JSON响应
func GetJSON(t *testing.T, url string, token string) *Response {
	t.Helper()
	return doJSON(t, http.MethodGet, url, nil, token)
}

// DeleteReq 发送DELETE请求（成功时204无响应体）
func DeleteReq(t *testing.T, url string, token string) *Response {
	t.Helper()
	return doJSON(t, http.MethodDelete, url, nil, token)
}

// GenerateTestEmail 生成唯一的测试邮箱
// 使用纳秒时间戳确保重复运行时不撞邮箱唯一约束
func GenerateTestEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@test.com", prefix, time.Now().UnixNano())
}

// FutureExpDate 一年后的卡有效期（"20YY-MM"）
func FutureExpDate() string {
	return time.Now().AddDate(1, 0, 0).Format("2006-01")
}

// ProductRef 构造商品引用（"Product#<id>"）
func ProductRef(id uint) string {
	return fmt.Sprintf("Product#%d", id)
}

// AccountRef 构造账户引用（"Account#<id>"）
func AccountRef(id uint) string {
	return fmt.Sprintf("Account#%d", id)
}

// RegisterTestAccount 开户并登录，返回账户ID、邮箱与Token
func RegisterTestAccount(t *testing.T, prefix string) (uint, string, string) {
	t.Helper()

	email := GenerateTestEmail(prefix)
	createResp := PostJSON(t, BaseURL+"/accounts", map[string]string{
		"email":     email,
		"firstName": "测试",
		"lastName":  "用户",
		"password":  "Test1234",
	}, "")
	require.Equal(t, 0, createResp.Code, "开户失败: %s", createResp.Message)

	var acc AccountData
	require.NoError(t, json.Unmarshal(createResp.Data, &acc), "解析开户响应失败")

	return acc.ID, email, Login(t, email, "Test1234")
}

// Login 登录并返回访问Token
func Login(t *testing.T, handle, password string) string {
	t.Helper()

	resp := PostJSON(t, BaseURL+"/login", map[string]string{
		"handle":   handle,
		"password": password,
	}, "")
	require.Equal(t, 0, resp.Code, "登录失败: %s", resp.Message)

	var data LoginData
	require.NoError(t, json.Unmarshal(resp.Data, &data), "解析登录响应失败")
	require.NotEmpty(t, data.AccessToken, "登录应返回access_token")

	return data.AccessToken
}

// LoginAdmin 管理员登录（口令与config/config.yaml保持一致）
func LoginAdmin(t *testing.T) string {
	t.Helper()
	return Login(t, "admin", "admin")
}

// PublishTestProduct 管理员上架测试商品，返回商品ID
func PublishTestProduct(t *testing.T, adminToken, name string, price int64, available bool) uint {
	t.Helper()

	resp := PostJSON(t, BaseURL+"/products", map[string]interface{}{
		"name":        name,
		"description": "集成测试商品",
		"price":       price,
		"available":   available,
	}, adminToken)
	require.Equal(t, 0, resp.Code, "上架商品失败: %s", resp.Message)

	var data ProductData
	require.NoError(t, json.Unmarshal(resp.Data, &data), "解析商品响应失败")
	require.NotZero(t, data.ID, "商品ID应该大于0")

	return data.ID
}

// PlaceTestOrder 用给定账户下单（单行项目），返回订单数据
func PlaceTestOrder(t *testing.T, token string, accountID, productID uint, quantity int) *OrderData {
	t.Helper()

	resp := PostJSON(t, fmt.Sprintf("%s/accounts/%d/orders", BaseURL, accountID), map[string]interface{}{
		"items": []map[string]interface{}{
			{"productRef": ProductRef(productID), "quantity": quantity},
		},
		"creditCardNumber":  "4012888888881881",
		"creditCardExpDate": FutureExpDate(),
	}, token)
	require.Equal(t, 0, resp.Code, "下单失败: %s", resp.Message)

	var data OrderData
	require.NoError(t, json.Unmarshal(resp.Data, &data), "解析订单响应失败")

	return &data
}

// updateOrderBody 把订单响应转回PUT完整表述，只改状态/行项目
func updateOrderBody(o *OrderData, status string, items []OrderItemData) map[string]interface{} {
	if items == nil {
		items = o.Items
	}
	return map[string]interface{}{
		"accountRef":           o.AccountRef,
		"placedOn":             o.PlacedOn,
		"status":               status,
		"paymentTransactionId": o.PaymentTransactionID,
		"items":                items,
	}
}
