// Package handler 按业务划分的 HTTP 处理器，子包 room、booking 为前台接口，admin 为后台接口
//
// @title                      B&B Booking API
// @version                    1.0
// @description                房间查询、可用性日历、预订确认，以及后台的房间、可用性、预订、通知和定价/可用性代理管理
// @BasePath                   /
// @securityDefinitions.apikey Bearer
// @in                         header
// @name                       Authorization
package handler
