// Package storagehttp реализует Storage API, HTTP-интерфейс узла хранения, который принимает
// части multipart-загрузок поверх локального диска и собирает из них объекты. Эндпоинты:
//   - POST /uploads/{uploadID}: заводит каталог загрузки и meta.json (вызывает бэкенд).
//   - PUT /uploads/{uploadID}/parts/{partNumber}: принимает часть по подписанному URL, отвечает ETag.
//   - GET|HEAD /uploads/{uploadID}/parts/{partNumber}: отдаёт часть или её размер и SHA-256.
//   - POST /uploads/{uploadID}/complete: проверяет ETag частей и склеивает их в объект;
//     повтор с тем же ключом возвращает прежний ответ.
//   - DELETE /uploads/{uploadID}: удаляет незавершённую загрузку.
//   - GET /objects/{key}: отдаёт собранный объект.
//   - POST /admin/gc: вручную чистит брошенные загрузки.
//   - GET /health: отдаёт занятое место и число незавершённых загрузок.
package storagehttp
