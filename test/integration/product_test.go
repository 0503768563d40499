package integration

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 教学说明：商品模块集成测试
//
// 测试场景覆盖：
// 1. 商品管理是管理员专属（上架/修改/删除）
// 2. 公开目录只展示可售商品
// 3. 被订单引用的商品不允许删除

// TestProductAdminOnly 测试商品管理权限
func TestProductAdminOnly(t *testing.T) {
	adminToken := LoginAdmin(t)
	_, _, userToken := RegisterTestAccount(t, "shopper")

	t.Run("管理员可以上架", func(t *testing.T) {
		id := PublishTestProduct(t, adminToken, "Go语言编程键盘", 29900, true)
		t.Logf("✓ 上架成功，商品ID: %d", id)
	})

	t.Run("普通用户不能上架", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/products", map[string]interface{}{
			"name":      "越权商品",
			"price":     100,
			"available": true,
		}, userToken)
		assert.Equal(t, 403, resp.Status, "非管理员上架应返回403")
	})

	t.Run("未登录不能上架", func(t *testing.T) {
		resp := PostJSON(t, BaseURL+"/products", map[string]interface{}{
			"name":      "匿名商品",
			"price":     100,
			"available": true,
		}, "")
		assert.Equal(t, 401, resp.Status, "未登录上架应返回401")
	})

	t.Run("普通用户不能修改", func(t *testing.T) {
		id := PublishTestProduct(t, adminToken, "只读商品", 5000, true)
		resp := PutJSON(t, fmt.Sprintf("%s/products/%d", BaseURL, id), map[string]interface{}{
			"name":      "被改名",
			"price":     1,
			"available": true,
		}, userToken)
		assert.Equal(t, 403, resp.Status, "非管理员修改应返回403")
	})
}

// TestProductCatalog 测试公开目录
func TestProductCatalog(t *testing.T) {
	adminToken := LoginAdmin(t)
	visibleID := PublishTestProduct(t, adminToken, "可售的书", 8900, true)
	hiddenID := PublishTestProduct(t, adminToken, "下架的书", 8900, false)

	t.Run("目录只含可售商品", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/products", "")
		require.Equal(t, 0, resp.Code, "目录查询应该成功")

		var items []ProductData
		require.NoError(t, json.Unmarshal(resp.Data, &items))

		ids := make(map[uint]bool, len(items))
		for _, item := range items {
			assert.True(t, item.Available, "目录中不应出现下架商品: %d", item.ID)
			ids[item.ID] = true
		}
		assert.True(t, ids[visibleID], "可售商品应在目录里")
		assert.False(t, ids[hiddenID], "下架商品不应在目录里")
	})

	t.Run("单个商品详情公开", func(t *testing.T) {
		resp := GetJSON(t, fmt.Sprintf("%s/products/%d", BaseURL, visibleID), "")
		require.Equal(t, 0, resp.Code, "商品详情应该公开")

		var p ProductData
		require.NoError(t, json.Unmarshal(resp.Data, &p))
		assert.Equal(t, int64(8900), p.Price)
	})

	t.Run("不存在的商品返回404", func(t *testing.T) {
		resp := GetJSON(t, BaseURL+"/products/99999999", "")
		assert.Equal(t, 404, resp.Status)
	})
}

// TestProductDelete 测试商品删除
func TestProductDelete(t *testing.T) {
	adminToken := LoginAdmin(t)

	t.Run("未被引用的商品可以删除", func(t *testing.T) {
		id := PublishTestProduct(t, adminToken, "短命商品", 100, true)
		resp := DeleteReq(t, fmt.Sprintf("%s/products/%d", BaseURL, id), adminToken)
		assert.Equal(t, 204, resp.Status, "删除应返回204")
	})

	t.Run("被订单引用不允许删除", func(t *testing.T) {
		productID := PublishTestProduct(t, adminToken, "畅销商品", 2000, true)
		accountID, _, token := RegisterTestAccount(t, "buyer")
		PlaceTestOrder(t, token, accountID, productID, 2)

		resp := DeleteReq(t, fmt.Sprintf("%s/products/%d", BaseURL, productID), adminToken)
		assert.Equal(t, 400, resp.Status, "被订单引用应返回400")

		t.Logf("✓ 删除正确被拒绝: %s", resp.Message)
	})

	t.Run("普通用户不能删除", func(t *testing.T) {
		id := PublishTestProduct(t, adminToken, "受保护商品", 100, true)
		_, _, userToken := RegisterTestAccount(t, "nodelete")

		resp := DeleteReq(t, fmt.Sprintf("%s/products/%d", BaseURL, id), userToken)
		assert.Equal(t, 403, resp.Status, "非管理员删除应返回403")
	})
}
